package i18n

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestTag(t *testing.T) {
	cases := map[string]language.Tag{
		"":      language.French,
		"fr":    language.French,
		"fr_FR": language.French,
		"en":    language.English,
		"en-US": language.English,
		"???":   language.French,
	}
	for in, want := range cases {
		require.Equal(t, want, Tag(in), in)
	}
}

func TestPrinter(t *testing.T) {
	date := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

	fr := NewPrinter("fr")
	require.Equal(t, "Erreur serveur", fr.Sprintf(InternalError))
	require.Equal(t, "07/03/2025", fr.FormatDate(date))

	en := NewPrinter("en")
	require.Equal(t, "Server error", en.Sprintf(InternalError))
	require.Equal(t, "March 7, 2025", en.FormatDate(date))
}
