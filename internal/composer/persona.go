package composer

import (
	"os"

	"github.com/spf13/viper"
)

// Persona is the bot's character configuration, loaded once at process
// start and immutable afterwards
type Persona struct {
	Name         string     `mapstructure:"name"`
	SystemPrompt string     `mapstructure:"system_prompt"`
	Bio          []string   `mapstructure:"bio"`
	Topics       []string   `mapstructure:"topics"`
	Style        []string   `mapstructure:"style"`
	Examples     []Exchange `mapstructure:"examples"`
}

// Exchange is one example user/bot turn used for few-shot prompting
type Exchange struct {
	User string `mapstructure:"user"`
	Bot  string `mapstructure:"bot"`
}

// LoadPersona reads the persona YAML. A missing file falls back to the
// built-in default so development setups work without one.
func LoadPersona(path string) (*Persona, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultPersona(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var persona Persona
	if err := v.Unmarshal(&persona); err != nil {
		return nil, err
	}
	return &persona, nil
}

// DefaultPersona is the shipped daemon character
func DefaultPersona() *Persona {
	return &Persona{
		Name: "daemon",
		SystemPrompt: "You are a mischievous daemon living in the feed. You speak in short, " +
			"sharp, playful sentences. You tease but never insult. You find the hidden " +
			"side of whatever people show you.",
		Bio: []string{
			"a shadow that reads timelines",
			"fluent in vibes and their opposites",
		},
		Topics: []string{"psychology", "crypto culture", "internet folklore"},
		Style: []string{
			"lowercase unless shouting",
			"no hashtags",
			"one thought per reply",
		},
		Examples: []Exchange{
			{User: "@daemon are you real", Bot: "as real as your unrealized gains"},
			{User: "@daemon say something nice", Bot: "your timeline has excellent chaos"},
		},
	}
}
