// ABOUTME: Persona settings: trigger prefixes, keywords, canned replies and instructions
// ABOUTME: Defaults are built in; a YAML file may override any field
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Persona controls what the bot reacts to and what it says
type Persona struct {
	Prefixes      []string            `yaml:"prefixes"`
	ImageKeywords []string            `yaml:"image_keywords"`
	Quotes        map[string][]string `yaml:"quotes"`

	BaseballLine   string  `yaml:"baseball_line"`
	BaseballChance float64 `yaml:"baseball_chance"`
	GIFChance      float64 `yaml:"gif_chance"`

	ChatInstruction  string  `yaml:"chat_instruction"`
	ImageInstruction string  `yaml:"image_instruction"`
	Temperature      float32 `yaml:"temperature"`

	ChatApology    string `yaml:"chat_apology"`
	ImageApology   string `yaml:"image_apology"`
	MissingText    string `yaml:"missing_text"`
	DownloadFailed string `yaml:"download_failed"`
	Welcome        string `yaml:"welcome"`

	ConsoleTrigger string `yaml:"console_trigger"`
	ConsoleExit    string `yaml:"console_exit"`
}

// DefaultPersona returns the built-in persona
func DefaultPersona() *Persona {
	return &Persona{
		Prefixes: []string{"M!", "m!", "!M", "!m", "m?", "M?"},
		ImageKeywords: []string{
			"image", "picture", "photo", "cartoon", "sketch",
			"drawing", "painting", "photograph", "illustration",
		},
		Quotes: map[string][]string{
			"99!": {
				"Sergeant, are you familiar with the Hungarian fencing move, Hossz Gorcs?",
				"Bingpot!",
				"Cool. Cool cool cool cool cool cool, no doubt no doubt no doubt no doubt.",
				"Well, here are the orchids that I can name: Baclardia, Belagladis, Bentamia, Bephyllax, Depotium, Evotella.",
				"VIN-DI-CATION!",
			},
		},
		BaseballLine:     "Baseball, huh?",
		BaseballChance:   0.05,
		GIFChance:        0.05,
		ChatInstruction:  "Use at most 2000 characters. You're very cool-headed. Speak like you are texting the user. ",
		ImageInstruction: "Speak like you are texting the user. ",
		Temperature:      0.9,
		ChatApology:      "Sorry, I'm having trouble responding right now. Please try again later.",
		ImageApology:     "Sorry, I'm having trouble generating content right now. Please try again later.",
		MissingText:      "There may have been an error in generating your image (err: 1). ",
		DownloadFailed:   "Could not download file.",
		Welcome:          "Hi {name}, welcome to Project Lucid.",
		ConsoleTrigger:   "!!@@",
		ConsoleExit:      "!!!",
	}
}

// LoadPersona returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults.
func LoadPersona(path string) (*Persona, error) {
	p := DefaultPersona()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona file: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing persona file: %w", err)
	}
	return p, p.Validate()
}

func (p *Persona) Validate() error {
	if len(p.Prefixes) == 0 {
		return fmt.Errorf("persona needs at least one prefix")
	}
	for _, chance := range []float64{p.BaseballChance, p.GIFChance} {
		if chance < 0 || chance > 1 {
			return fmt.Errorf("persona chances must be 0-1, got %f", chance)
		}
	}
	if p.Temperature < 0.1 || p.Temperature > 2.0 {
		return fmt.Errorf("persona temperature must be 0.1-2.0, got %f", p.Temperature)
	}
	if p.ConsoleTrigger == "" || p.ConsoleExit == "" {
		return fmt.Errorf("persona console trigger and exit must be set")
	}
	return nil
}

// WelcomeFor renders the welcome message for a member
func (p *Persona) WelcomeFor(name string) string {
	return strings.ReplaceAll(p.Welcome, "{name}", name)
}
