package storage

import (
	"context"
	"errors"
	"fmt"
)

// ThemeKey holds the user's colour scheme choice.
const ThemeKey = "@theme_preference"

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// LoadTheme returns the stored preference, or ThemeSystem when none is stored. An
// unreadable or unknown value also yields ThemeSystem, along with the error.
func LoadTheme(ctx context.Context, kv KV) (Theme, error) {
	v, err := kv.Get(ctx, ThemeKey)
	if errors.Is(err, ErrNotFound) {
		return ThemeSystem, nil
	}
	if err != nil {
		return ThemeSystem, err
	}
	t, err := ParseTheme(v)
	if err != nil {
		return ThemeSystem, err
	}
	return t, nil
}

func SaveTheme(ctx context.Context, kv KV, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return kv.Set(ctx, ThemeKey, string(t))
}
