package review

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/parcelreview/backend/internal/domain/review"
)

// LocaleConfig configures locale and template selection
type LocaleConfig struct {
	// DefaultLocale is used when the destination country is unknown, e.g. "en_GB"
	DefaultLocale string
	// DefaultTemplateID is used when no template is configured for a language
	DefaultTemplateID string
	// LocalesByCountry overrides the derived locale per ISO 3166 country code
	LocalesByCountry map[string]string
	// TemplatesByLanguage maps an ISO 639 language code to a template id
	TemplatesByLanguage map[string]string
}

// LocaleResolver derives the invitation locale and template from a parcel
type LocaleResolver struct {
	defaultLocale     string
	defaultTemplateID string
	byCountry         map[string]string
	byLanguage        map[string]string
}

// NewLocaleResolver creates a resolver. Map keys are normalized.
func NewLocaleResolver(cfg LocaleConfig) *LocaleResolver {
	r := &LocaleResolver{
		defaultLocale:     cfg.DefaultLocale,
		defaultTemplateID: cfg.DefaultTemplateID,
		byCountry:         make(map[string]string, len(cfg.LocalesByCountry)),
		byLanguage:        make(map[string]string, len(cfg.TemplatesByLanguage)),
	}
	for country, locale := range cfg.LocalesByCountry {
		r.byCountry[strings.ToUpper(strings.TrimSpace(country))] = locale
	}
	for lang, tpl := range cfg.TemplatesByLanguage {
		r.byLanguage[strings.ToLower(strings.TrimSpace(lang))] = tpl
	}
	return r
}

// LocaleFor returns the locale for the parcel destination, or the default
// when the parcel, its address or its country is missing or unrecognised
func (r *LocaleResolver) LocaleFor(parcel *review.Parcel) string {
	country := parcel.DestinationCountry()
	if country == "" {
		return r.defaultLocale
	}

	region, err := language.ParseRegion(country)
	if err != nil || !region.IsCountry() {
		return r.defaultLocale
	}
	if locale, ok := r.byCountry[region.String()]; ok {
		return locale
	}

	base, conf := language.Make("und-" + region.String()).Base()
	if conf == language.No {
		return r.defaultLocale
	}
	tag, err := language.Compose(base, region)
	if err != nil {
		return r.defaultLocale
	}
	return strings.ReplaceAll(tag.String(), "-", "_")
}

// TemplateFor returns the template id for the base language of locale
func (r *LocaleResolver) TemplateFor(locale string) string {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return r.defaultTemplateID
	}
	base, _ := tag.Base()
	if tpl, ok := r.byLanguage[base.String()]; ok {
		return tpl
	}
	return r.defaultTemplateID
}
