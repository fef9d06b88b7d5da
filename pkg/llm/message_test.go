package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gemchat/pkg/llm"
)

var _ = Describe("Message", func() {
	It("builds user messages", func() {
		msg := llm.NewUserMessage("Hello")

		Expect(msg.Role).To(Equal(llm.RoleUser))
		Expect(msg.Text).To(Equal("Hello"))
	})

	It("builds model messages", func() {
		msg := llm.NewModelMessage("Hi there")

		Expect(msg.Role).To(Equal(llm.RoleModel))
		Expect(msg.Text).To(Equal("Hi there"))
	})

	It("formats with the role prefix", func() {
		Expect(llm.NewUserMessage("Hello").String()).To(Equal("[user]: Hello"))
	})

	DescribeTable("Role.Valid",
		func(role llm.Role, valid bool) {
			Expect(role.Valid()).To(Equal(valid))
		},
		Entry("user", llm.RoleUser, true),
		Entry("model", llm.RoleModel, true),
		Entry("assistant", llm.Role("assistant"), false),
		Entry("empty", llm.Role(""), false),
	)
})
