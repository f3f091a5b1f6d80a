package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"polymarket-edge/internal/settings"
)

// SettingsList prints every setting with its bounds.
func (a *App) SettingsList(ctx context.Context) error {
	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Key\tValue\tRange\tDescription")
	for _, field := range settings.Fields() {
		value, err := prefs.Get(field.Key)
		if err != nil {
			return err
		}
		bounds := "true|false"
		if field.Kind == settings.KindNumber {
			bounds = fmt.Sprintf("%s..%s step %s", trimFloat(field.Min), trimFloat(field.Max), trimFloat(field.Step))
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", field.Key, value, bounds, field.Label)
	}
	writer.Flush()
	return nil
}

// SettingsGet prints one setting.
func (a *App) SettingsGet(ctx context.Context, key string) error {
	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()

	value, err := prefs.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, value)
	return nil
}

// SettingsSet validates and persists one setting.
func (a *App) SettingsSet(ctx context.Context, key, value string) error {
	prefs, closeSettings, err := a.openSettings(ctx)
	if err != nil {
		return err
	}
	defer closeSettings()

	if err := prefs.Set(ctx, key, value); err != nil {
		return err
	}
	stored, err := prefs.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s = %s\n", key, stored)
	return nil
}
