package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the top-level structure of a watch.yaml file.
type Document struct {
	Watch     Watch      `yaml:"watch"`
	Backfill  *Backfill  `yaml:"backfill,omitempty"`
	Dedupe    Dedupe     `yaml:"dedupe,omitempty"`
	Email     *Email     `yaml:"email,omitempty"`
	Crosspost *Crosspost `yaml:"crosspost,omitempty"`
}

// Watch configures the live poll loop.
type Watch struct {
	Name     string   `yaml:"name"`
	Interval Duration `yaml:"interval,omitempty"`
	Window   int      `yaml:"window,omitempty"`
	Filter   string   `yaml:"filter,omitempty"`
}

// Backfill configures bulk historical walks, optionally on a cron
// schedule.
type Backfill struct {
	PageSize  int      `yaml:"page_size,omitempty"`
	MaxPages  int      `yaml:"max_pages,omitempty"`
	PageDelay Duration `yaml:"page_delay,omitempty"`
	Schedule  string   `yaml:"schedule,omitempty"`
	Timezone  string   `yaml:"timezone,omitempty"`
}

// Dedupe selects and tunes the seen-post store.
type Dedupe struct {
	Driver   string   `yaml:"driver,omitempty"` // "memory" (default) or "sqlite"
	Path     string   `yaml:"path,omitempty"`
	TTL      Duration `yaml:"ttl,omitempty"`
	Capacity int      `yaml:"capacity,omitempty"`
}

// Email configures digest delivery. SMTP credentials come from the
// environment, not the document.
type Email struct {
	To      string `yaml:"to"`
	From    string `yaml:"from,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Crosspost bridges RSS/Atom feeds onto the uwuzu timeline.
type Crosspost struct {
	Feeds    []string `yaml:"feeds"`
	Limit    int      `yaml:"limit,omitempty"`
	Schedule string   `yaml:"schedule,omitempty"`
	Timezone string   `yaml:"timezone,omitempty"`
}

// Load reads and parses a document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse watch document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate rejects documents that could only fail later at runtime.
func (d *Document) Validate() error {
	if d.Watch.Name == "" {
		return fmt.Errorf("watch name is required")
	}
	if d.Watch.Interval < 0 {
		return fmt.Errorf("watch interval must be >= 0")
	}
	if d.Watch.Window < 0 {
		return fmt.Errorf("watch window must be >= 0")
	}
	switch d.Dedupe.Driver {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown dedupe driver %q", d.Dedupe.Driver)
	}
	if d.Dedupe.Driver == "sqlite" && d.Dedupe.Path == "" {
		return fmt.Errorf("dedupe path is required for the sqlite driver")
	}
	if d.Email != nil && d.Email.To == "" {
		return fmt.Errorf("email to address is required")
	}
	if d.Crosspost != nil && len(d.Crosspost.Feeds) == 0 {
		return fmt.Errorf("crosspost requires at least one feed")
	}
	for _, tz := range []string{timezoneOf(d.Backfill), timezoneOfCrosspost(d.Crosspost)} {
		if tz == "" {
			continue
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}
	return nil
}

func timezoneOf(b *Backfill) string {
	if b == nil {
		return ""
	}
	return b.Timezone
}

func timezoneOfCrosspost(c *Crosspost) string {
	if c == nil {
		return ""
	}
	return c.Timezone
}
