package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/gemchat/pkg/config"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

var _ = Describe("Config", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", dir)
		for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMCHAT_MODEL", "GEMCHAT_BACKEND", "OLLAMA_HOST"} {
			GinkgoT().Setenv(k, "")
		}
	})

	writeConfig := func(path, body string) {
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
	}

	Describe("Load", func() {
		It("decodes a TOML file", func() {
			path := filepath.Join(dir, "custom.toml")
			writeConfig(path, `
backend = "gemini"
api_key = "file-key"
model = "gemini-test"
listen = ":9090"
error_display = "2s"
busy_message = "busy"
debug = true
`)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.APIKey).To(Equal("file-key"))
			Expect(cfg.Model).To(Equal("gemini-test"))
			Expect(cfg.ListenAddr).To(Equal(":9090"))
			Expect(cfg.ErrorDisplay.Duration).To(Equal(2 * time.Second))
			Expect(cfg.BusyMessage).To(Equal("busy"))
			Expect(cfg.Debug).To(BeTrue())
		})

		It("reads the default location when no path is given", func() {
			writeConfig(filepath.Join(dir, ".gemchat", "config.toml"), `api_key = "home-key"`)

			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.APIKey).To(Equal("home-key"))
		})

		It("tolerates a missing default file", func() {
			cfg, err := config.Load("")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.APIKey).To(BeEmpty())
		})

		It("fails for a missing explicit file", func() {
			_, err := config.Load(filepath.Join(dir, "nope.toml"))
			Expect(err).To(HaveOccurred())
		})

		It("fails for an invalid duration", func() {
			path := filepath.Join(dir, "bad.toml")
			writeConfig(path, `error_display = "soon"`)

			_, err := config.Load(path)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid duration"))
		})

		It("keeps an explicit zero error_display", func() {
			path := filepath.Join(dir, "sticky.toml")
			writeConfig(path, `error_display = "0s"`)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			cfg.SetDefaults()

			Expect(cfg.ErrorDisplay.Duration).To(BeZero())
			Expect(cfg.Validate()).To(MatchError(config.ErrMissingAPIKey))
		})

		It("defaults error_display when the file omits it", func() {
			path := filepath.Join(dir, "plain.toml")
			writeConfig(path, `model = "m"`)

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			cfg.SetDefaults()

			Expect(cfg.ErrorDisplay.Duration).To(Equal(1500 * time.Millisecond))
		})

		It("lets the environment override the file", func() {
			path := filepath.Join(dir, "custom.toml")
			writeConfig(path, `api_key = "file-key"`)
			GinkgoT().Setenv("GEMINI_API_KEY", "env-key")

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.APIKey).To(Equal("env-key"))
		})
	})

	Describe("ApplyEnv", func() {
		It("prefers GEMINI_API_KEY over GOOGLE_API_KEY", func() {
			cfg := &config.Config{}
			cfg.ApplyEnv(envMap(map[string]string{
				"GEMINI_API_KEY": "gemini",
				"GOOGLE_API_KEY": "google",
			}))
			Expect(cfg.APIKey).To(Equal("gemini"))
		})

		It("falls back to GOOGLE_API_KEY", func() {
			cfg := &config.Config{}
			cfg.ApplyEnv(envMap(map[string]string{"GOOGLE_API_KEY": "google"}))
			Expect(cfg.APIKey).To(Equal("google"))
		})

		It("ignores empty values", func() {
			cfg := &config.Config{Model: "kept"}
			cfg.ApplyEnv(envMap(map[string]string{"GEMCHAT_MODEL": ""}))
			Expect(cfg.Model).To(Equal("kept"))
		})

		It("maps backend and upstream variables", func() {
			cfg := &config.Config{}
			cfg.ApplyEnv(envMap(map[string]string{
				"GEMCHAT_BACKEND": "ollama",
				"OLLAMA_HOST":     "http://gpu:11434",
			}))
			Expect(cfg.Backend).To(Equal(config.BackendOllama))
			Expect(cfg.UpstreamURL).To(Equal("http://gpu:11434"))
		})
	})

	Describe("SetDefaults and Validate", func() {
		It("defaults to the gemini backend and requires a key", func() {
			cfg := &config.Config{}
			cfg.SetDefaults()

			Expect(cfg.Backend).To(Equal(config.BackendGemini))
			Expect(cfg.ListenAddr).To(Equal(":8080"))
			Expect(cfg.ErrorDisplay.Duration).To(Equal(1500 * time.Millisecond))
			Expect(cfg.Validate()).To(MatchError(config.ErrMissingAPIKey))
		})

		It("accepts the ollama backend without a key", func() {
			cfg := &config.Config{Backend: config.BackendOllama}
			cfg.SetDefaults()

			Expect(cfg.Validate()).To(Succeed())
		})

		It("rejects unknown backends", func() {
			cfg := &config.Config{Backend: "carrier-pigeon", APIKey: "k"}
			cfg.SetDefaults()

			Expect(cfg.Validate()).To(MatchError(ContainSubstring("unknown backend")))
		})
	})
})
