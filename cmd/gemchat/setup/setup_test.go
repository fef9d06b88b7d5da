package setup_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/gemchat/cmd/gemchat/setup"
	"github.com/papercomputeco/gemchat/pkg/config"
)

var _ = Describe("Setup", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", dir)
		for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMCHAT_MODEL", "GEMCHAT_BACKEND", "OLLAMA_HOST"} {
			GinkgoT().Setenv(k, "")
		}
	})

	Describe("Bind", func() {
		It("parses the persistent flags", func() {
			flags := &setup.Flags{}
			cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
			flags.Bind(cmd)
			cmd.SetArgs([]string{"--api-key", "k", "--model", "m", "--backend", "ollama", "--debug"})

			Expect(cmd.Execute()).To(Succeed())
			Expect(flags.APIKey).To(Equal("k"))
			Expect(flags.Model).To(Equal("m"))
			Expect(flags.Backend).To(Equal("ollama"))
			Expect(flags.Debug).To(BeTrue())
		})
	})

	Describe("Resolve", func() {
		It("lets flags override the file and the environment", func() {
			path := filepath.Join(dir, "config.toml")
			Expect(os.WriteFile(path, []byte("api_key = \"file\"\nmodel = \"file-model\"\n"), 0o600)).To(Succeed())
			GinkgoT().Setenv("GEMCHAT_MODEL", "env-model")

			cfg, err := (&setup.Flags{ConfigPath: path, APIKey: "flag"}).Resolve()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.APIKey).To(Equal("flag"))
			Expect(cfg.Model).To(Equal("env-model"))
			Expect(cfg.Backend).To(Equal(config.BackendGemini))
		})

		It("fails without an API key for gemini", func() {
			_, err := (&setup.Flags{}).Resolve()
			Expect(err).To(MatchError(config.ErrMissingAPIKey))
		})

		It("disables auto-clear for an explicit zero error_display", func() {
			path := filepath.Join(dir, "config.toml")
			Expect(os.WriteFile(path, []byte("backend = \"ollama\"\nerror_display = \"0s\"\n"), 0o600)).To(Succeed())

			cfg, err := (&setup.Flags{ConfigPath: path}).Resolve()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ErrorDisplay.Duration).To(BeZero())
		})

		It("does not need a key for ollama", func() {
			cfg, err := (&setup.Flags{Backend: config.BackendOllama}).Resolve()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ErrorDisplay.Duration).To(Equal(1500 * time.Millisecond))
		})
	})

	Describe("NewSender and NewController", func() {
		It("wires an ollama backend end to end", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"model":   "llama3.2",
					"message": map[string]string{"role": "assistant", "content": "pong"},
					"done":    true,
				})
			}))
			DeferCleanup(upstream.Close)

			cfg := &config.Config{Backend: config.BackendOllama, UpstreamURL: upstream.URL}
			cfg.SetDefaults()

			sender, err := setup.NewSender(context.Background(), cfg, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			ctrl := setup.NewController(cfg, sender, zap.NewNop())
			DeferCleanup(ctrl.Close)

			snap := ctrl.Submit(context.Background(), "ping")
			Expect(snap.Error).To(BeEmpty())
			Expect(snap.Messages).To(HaveLen(2))
			Expect(snap.Messages[1].Text).To(Equal("pong"))
		})

		It("builds a gemini backend from a key", func() {
			cfg := &config.Config{Backend: config.BackendGemini, APIKey: "k", BaseURL: "http://127.0.0.1:1"}
			cfg.SetDefaults()

			sender, err := setup.NewSender(context.Background(), cfg, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())
			Expect(sender).NotTo(BeNil())
		})

		It("applies the configured busy message", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			}))
			DeferCleanup(upstream.Close)

			cfg := &config.Config{Backend: config.BackendOllama, UpstreamURL: upstream.URL, BusyMessage: "hold on"}
			cfg.SetDefaults()

			sender, err := setup.NewSender(context.Background(), cfg, zap.NewNop())
			Expect(err).NotTo(HaveOccurred())

			ctrl := setup.NewController(cfg, sender, zap.NewNop())
			DeferCleanup(ctrl.Close)

			snap := ctrl.Submit(context.Background(), "ping")
			Expect(snap.Error).To(Equal("hold on"))
		})
	})
})
