package transport_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gemchat/pkg/llm"
	"github.com/papercomputeco/gemchat/pkg/transport"
)

var _ = Describe("Transport", func() {
	Describe("PriorTurns", func() {
		It("drops the trailing user message carrying the prompt", func() {
			history := []llm.Message{
				llm.NewUserMessage("Hello"),
				llm.NewModelMessage("Hi there"),
				llm.NewUserMessage("How are you?"),
			}

			Expect(transport.PriorTurns("How are you?", history)).To(Equal(history[:2]))
		})

		It("keeps history that does not end with the prompt", func() {
			history := []llm.Message{
				llm.NewUserMessage("Hello"),
				llm.NewModelMessage("How are you?"),
			}

			Expect(transport.PriorTurns("How are you?", history)).To(Equal(history))
		})

		It("handles empty history", func() {
			Expect(transport.PriorTurns("Hello", nil)).To(BeEmpty())
		})
	})

	Describe("OrEmptyFallback", func() {
		It("passes text through", func() {
			Expect(transport.OrEmptyFallback("Hi")).To(Equal("Hi"))
		})

		It("substitutes the fallback for empty text", func() {
			Expect(transport.OrEmptyFallback("")).To(Equal(transport.EmptyResponseText))
		})
	})

	Describe("Failure", func() {
		It("carries the underlying message verbatim", func() {
			cause := errors.New("503 Service Unavailable")
			err := transport.NewFailure("gemini", cause)

			Expect(err).To(MatchError("503 Service Unavailable"))
			Expect(errors.Is(err, cause)).To(BeTrue())

			var failure *transport.Failure
			Expect(errors.As(err, &failure)).To(BeTrue())
			Expect(failure.Backend).To(Equal("gemini"))
		})

		It("is nil for a nil cause", func() {
			Expect(transport.NewFailure("gemini", nil)).To(BeNil())
		})
	})

	Describe("SenderFunc", func() {
		It("adapts a function", func() {
			var sender transport.Sender = transport.SenderFunc(func(_ context.Context, prompt string, history []llm.Message) (string, error) {
				return prompt + "!", nil
			})

			reply, err := sender.Send(context.Background(), "Hello", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("Hello!"))
		})
	})
})
