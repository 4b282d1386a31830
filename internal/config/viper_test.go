package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadOptionsFromViperUsesEnvWhenFlagsUnset(t *testing.T) {
	t.Setenv("TTS_SYNC_VOICE", "nova")
	t.Setenv("TTS_SYNC_CONCURRENCY", "9")

	v := viper.New()
	SetDefaults(v)

	o, err := LoadOptionsFromViper(v)
	if err != nil {
		t.Fatalf("LoadOptionsFromViper: %v", err)
	}
	if o.Voice != "nova" {
		t.Fatalf("Voice = %q, want env value %q", o.Voice, "nova")
	}
	if o.Concurrency != 9 {
		t.Fatalf("Concurrency = %d, want env value 9", o.Concurrency)
	}
}

func TestLoadOptionsFromViperPrefersFlagOverEnv(t *testing.T) {
	t.Setenv("TTS_SYNC_VOICE", "nova")

	v := viper.New()
	SetDefaults(v)
	v.Set("voice", "echo")

	o, err := LoadOptionsFromViper(v)
	if err != nil {
		t.Fatalf("LoadOptionsFromViper: %v", err)
	}
	if o.Voice != "echo" {
		t.Fatalf("Voice = %q, want flag value %q to win over env", o.Voice, "echo")
	}
}
