package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  port: "8080"
  metrics_port: "9090"

retrieval:
  index_path: "/data/index"
  collection_name: "programs_index"
  embed_model: "amazon.titan-embed-text-v2:0"
  embedding_provider: "bedrock"
  top_k_default: 10
  retrieval_multiplier: 2

llm:
  provider: "anthropic"
  model: "claude-3-5-sonnet-20241022"
  seed: 42
  temperature: 0.0
  timeout: "30s"
  max_concurrency: 8

matching:
  weights:
    rule: 0.45
    content: 0.35
    goal: 0.20
  calibration: "relative_minmax"

logging:
  level: "info"
  format: "json"
`
				err := os.WriteFile(configFile, []byte(validConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())

				Expect(cfg.Server.Port).To(Equal("8080"))
				Expect(cfg.Server.MetricsPort).To(Equal("9090"))

				Expect(cfg.Retrieval.IndexPath).To(Equal("/data/index"))
				Expect(cfg.Retrieval.CollectionName).To(Equal("programs_index"))
				Expect(cfg.Retrieval.EmbedModel).To(Equal("amazon.titan-embed-text-v2:0"))
				Expect(cfg.Retrieval.EmbeddingProvider).To(Equal("bedrock"))
				Expect(cfg.Retrieval.TopKDefault).To(Equal(10))
				Expect(cfg.Retrieval.RetrievalMultiplier).To(Equal(2))

				Expect(cfg.LLM.Provider).To(Equal("anthropic"))
				Expect(cfg.LLM.Model).To(Equal("claude-3-5-sonnet-20241022"))
				Expect(cfg.LLM.Seed).To(Equal(42))
				Expect(cfg.LLM.Temperature).To(Equal(float32(0.0)))
				Expect(cfg.LLM.Timeout).To(Equal(30 * time.Second))
				Expect(cfg.LLM.MaxConcurrency).To(Equal(8))

				Expect(cfg.Matching.Weights.Rule).To(Equal(0.45))
				Expect(cfg.Matching.Weights.Content).To(Equal(0.35))
				Expect(cfg.Matching.Weights.Goal).To(Equal(0.20))
				Expect(cfg.Matching.Calibration).To(Equal("relative_minmax"))

				Expect(cfg.Logging.Level).To(Equal("info"))
				Expect(cfg.Logging.Format).To(Equal("json"))
			})
		})

		Context("when config file has minimal content", func() {
			BeforeEach(func() {
				minimalConfig := `
retrieval:
  index_path: "/data/index"

llm:
  model: "claude-3-5-sonnet-20241022"
`
				err := os.WriteFile(configFile, []byte(minimalConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load with defaults for missing values", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Retrieval.IndexPath).To(Equal("/data/index"))
				Expect(cfg.Retrieval.CollectionName).To(Equal("programs_index"))
				Expect(cfg.Retrieval.TopKDefault).To(Equal(10))
				Expect(cfg.LLM.Provider).To(Equal("anthropic"))
				Expect(cfg.Matching.Calibration).To(Equal("relative_minmax"))
				Expect(cfg.Matching.Weights.Rule).To(Equal(0.45))
			})
		})

		Context("when config file does not exist", func() {
			It("should return an error", func() {
				_, err := Load("/nonexistent/config.yaml")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to read config file"))
			})
		})

		Context("when config file has invalid YAML", func() {
			BeforeEach(func() {
				invalidConfig := `
server:
  port: "8080"
  bad: [
llm:
  model: "x"
`
				err := os.WriteFile(configFile, []byte(invalidConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})

		Context("when config has invalid duration formats", func() {
			BeforeEach(func() {
				invalidDurationConfig := `
llm:
  model: "x"
  timeout: "not-a-duration"
`
				err := os.WriteFile(configFile, []byte(invalidDurationConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})
	})

	Describe("validate", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = DefaultConfig()
		})

		Context("when config is valid", func() {
			It("should pass validation", func() {
				Expect(validate(cfg)).NotTo(HaveOccurred())
			})
		})

		Context("when LLM provider is unsupported", func() {
			BeforeEach(func() { cfg.LLM.Provider = "bogus" })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("unsupported LLM provider"))
			})
		})

		Context("when LLM model is missing", func() {
			BeforeEach(func() { cfg.LLM.Model = "" })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("LLM model is required"))
			})
		})

		Context("when LLM temperature is out of range", func() {
			BeforeEach(func() { cfg.LLM.Temperature = 1.5 })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("LLM temperature must be between 0.0 and 1.0"))
			})
		})

		Context("when matching weights do not sum to 1", func() {
			BeforeEach(func() { cfg.Matching.Weights.Rule = 0.9 })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("matching weights must sum to 1.0"))
			})
		})

		Context("when top_k_default is not positive", func() {
			BeforeEach(func() { cfg.Retrieval.TopKDefault = 0 })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("top_k_default must be greater than 0"))
			})
		})

		Context("when max concurrency is not positive", func() {
			BeforeEach(func() { cfg.LLM.MaxConcurrency = 0 })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("max concurrency must be greater than 0"))
			})
		})
	})

	Describe("loadFromEnv", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = &Config{}
			os.Clearenv()
		})

		Context("when environment variables are set", func() {
			BeforeEach(func() {
				os.Setenv("LLM_MODEL", "claude-3-5-sonnet-20241022")
				os.Setenv("EMBED_MODEL", "amazon.titan-embed-text-v2:0")
				os.Setenv("MATCH_TOP_K", "7")
				os.Setenv("MATCH_RETRIEVAL_MULTIPLIER", "4")
				os.Setenv("MATCH_WEIGHTS", "0.5,0.3,0.2")
				os.Setenv("MATCH_CALIBRATION", "sigmoid")
				os.Setenv("LOG_LEVEL", "debug")
			})

			AfterEach(func() { os.Clearenv() })

			It("should load values from the environment", func() {
				err := loadFromEnv(cfg)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.LLM.Model).To(Equal("claude-3-5-sonnet-20241022"))
				Expect(cfg.Retrieval.EmbedModel).To(Equal("amazon.titan-embed-text-v2:0"))
				Expect(cfg.Retrieval.TopKDefault).To(Equal(7))
				Expect(cfg.Retrieval.RetrievalMultiplier).To(Equal(4))
				Expect(cfg.Matching.Weights).To(Equal(Weights{Rule: 0.5, Content: 0.3, Goal: 0.2}))
				Expect(cfg.Matching.Calibration).To(Equal("sigmoid"))
				Expect(cfg.Logging.Level).To(Equal("debug"))
			})
		})

		Context("when no environment variables are set", func() {
			It("should not modify config", func() {
				original := *cfg
				err := loadFromEnv(cfg)
				Expect(err).NotTo(HaveOccurred())
				Expect(*cfg).To(Equal(original))
			})
		})
	})
})
