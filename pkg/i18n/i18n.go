// Package i18n holds the message catalog shared by the HTTP layer and the
// services. Keys are the English texts, other locales register translations.
package i18n

import (
	"strings"
	"time"

	"smallbiznis-license/pkg/config"

	"go.uber.org/fx"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	InternalError = "Server error"
	Unauthorized  = "Unauthorized"
	TooManyCalls  = "Too many requests, please try again later"
	InvalidBody   = "Invalid request body"
)

var supported = language.NewMatcher([]language.Tag{language.French, language.English})

func init() {
	Register(language.French, map[string]string{
		InternalError: "Erreur serveur",
		Unauthorized:  "Non autorisé",
		TooManyCalls:  "Trop de requêtes, veuillez réessayer plus tard",
		InvalidBody:   "Corps de requête invalide",
	})
}

// Register adds translations for tag to the default catalog.
func Register(tag language.Tag, entries map[string]string) {
	for key, msg := range entries {
		_ = message.SetString(tag, key, msg)
	}
}

// Tag resolves a configured locale ("fr", "fr-FR", "en_US") to French or English.
// Anything unrecognised falls back to French.
func Tag(locale string) language.Tag {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return language.French
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.French
	}
	_, idx, conf := supported.Match(tag)
	if conf == language.No {
		return language.French
	}
	if idx == 1 {
		return language.English
	}
	return language.French
}

type Printer struct {
	tag     language.Tag
	printer *message.Printer
}

func NewPrinter(locale string) *Printer {
	tag := Tag(locale)
	return &Printer{tag: tag, printer: message.NewPrinter(tag)}
}

func (p *Printer) Sprintf(key string, args ...any) string {
	return p.printer.Sprintf(key, args...)
}

func (p *Printer) Tag() language.Tag {
	return p.tag
}

// FormatDate renders a civil date the way the locale writes it.
func (p *Printer) FormatDate(t time.Time) string {
	if p.tag == language.English {
		return t.Format("January 2, 2006")
	}
	return t.Format("02/01/2006")
}

var Module = fx.Module("i18n", fx.Provide(ProvidePrinter))

func ProvidePrinter(cfg *config.Config) *Printer {
	return NewPrinter(cfg.License.Locale)
}
