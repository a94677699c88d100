// Package config loads the static bot configuration: the question
// schema, the product option set, the supervisor roster and transport
// settings. Loaded once at process start, immutable afterwards.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"reportbot/model"
)

// Question is one schema entry as written in the config file.
type Question struct {
	Key    string `yaml:"key"`
	Prompt string `yaml:"prompt"`
}

// Config is the full bot configuration.
type Config struct {
	DatabasePath      string     `yaml:"database_path"`
	Password          string     `yaml:"password"`
	Supervisors       []string   `yaml:"supervisors"`
	ManagementChatIDs []int64    `yaml:"management_chat_ids"`
	Questions         []Question `yaml:"questions"`
	TallyKey          string     `yaml:"tally_key"`
	ProductsKey       string     `yaml:"products_key"`
	ProductOptions    []string   `yaml:"product_options"`
	// DefectsBlock is the static text appended to combined reports.
	DefectsBlock string `yaml:"defects_block"`

	// Token comes from the BOT_TOKEN environment variable, never the file.
	Token string `yaml:"-"`
}

// Load reads and validates the yaml config at path and picks up the
// bot token from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Token = os.Getenv("BOT_TOKEN")

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "reports.db"
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Questions) == 0 {
		return fmt.Errorf("no questions configured")
	}
	seen := make(map[string]bool, len(c.Questions))
	tallyFound := false
	for i, q := range c.Questions {
		if q.Key == "" {
			return fmt.Errorf("question %d has an empty key", i)
		}
		if seen[q.Key] {
			return fmt.Errorf("duplicate question key %q", q.Key)
		}
		seen[q.Key] = true
		if q.Key == c.TallyKey {
			tallyFound = true
		}
	}
	if c.TallyKey == "" || !tallyFound {
		return fmt.Errorf("tally_key %q is not a question key", c.TallyKey)
	}
	if c.ProductsKey == "" {
		return fmt.Errorf("products_key is empty")
	}
	if seen[c.ProductsKey] {
		return fmt.Errorf("products_key %q collides with a question key", c.ProductsKey)
	}
	if len(c.ProductOptions) == 0 {
		return fmt.Errorf("no product options configured")
	}
	if len(c.Supervisors) == 0 {
		return fmt.Errorf("no supervisors configured")
	}
	if len(c.ManagementChatIDs) == 0 {
		return fmt.Errorf("no management chat ids configured")
	}
	return nil
}

// Schema builds the immutable question schema the form engine and
// report assembler run on.
func (c *Config) Schema() model.Schema {
	questions := make([]model.QuestionSpec, len(c.Questions))
	for i, q := range c.Questions {
		questions[i] = model.QuestionSpec{Key: q.Key, Prompt: q.Prompt}
	}
	return model.Schema{
		Questions:   questions,
		TallyKey:    c.TallyKey,
		ProductsKey: c.ProductsKey,
		Options:     append([]string(nil), c.ProductOptions...),
	}
}
