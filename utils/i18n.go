package utils

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	// Bundle is the global translation bundle
	Bundle = i18n.NewBundle(language.English)
	// Localizer is the default localizer
	Localizer = i18n.NewLocalizer(Bundle, language.English.String())

	// SupportedLanguages lists the locales that have message files
	SupportedLanguages = []language.Tag{language.English, language.Japanese}
)

// InitI18n loads active.<lang>.toml for every supported language from dir.
// Missing files are logged; lookups then fall back to the message ID.
func InitI18n(dir string) error {
	Bundle = i18n.NewBundle(language.English)
	Bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, tag := range SupportedLanguages {
		path := filepath.Join(dir, "active."+tag.String()+".toml")
		if _, err := Bundle.LoadMessageFile(path); err != nil {
			Log.Warn("Failed to load %s locale: %v", tag, err)
		}
	}

	Localizer = i18n.NewLocalizer(Bundle, language.English.String())

	Log.Info("i18n system initialized")
	return nil
}

// MatchLanguage picks the best supported language for an Accept-Language value or tag
func MatchLanguage(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return language.English.String()
	}

	matcher := language.NewMatcher(SupportedLanguages)
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return language.English.String()
	}
	return SupportedLanguages[idx].String()
}

// GetLocalizer returns a localizer for the specified language
func GetLocalizer(lang string) *i18n.Localizer {
	if lang == "" {
		lang = language.English.String()
	}
	return i18n.NewLocalizer(Bundle, lang)
}

// T translates a message ID
func T(localizer *i18n.Localizer, messageID string) string {
	if localizer == nil {
		localizer = Localizer
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}

// TWithData translates a message ID with template data
func TWithData(localizer *i18n.Localizer, messageID string, data map[string]interface{}) string {
	if localizer == nil {
		localizer = Localizer
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}
