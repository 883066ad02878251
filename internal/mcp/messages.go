package mcp

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys double as the English text.
const (
	msgToolDescription = "Get the public IP information of this machine, including IP address, geolocation and ISP"
	msgFetchFailed     = "Failed to get IP info: %s"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.Chinese,
}

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, msgToolDescription, msgToolDescription)
	set(language.English, msgFetchFailed, msgFetchFailed)

	set(language.Chinese, msgToolDescription, "获取当前机器的公网IP信息，包括IP地址、地理位置、ISP等")
	set(language.Chinese, msgFetchFailed, "获取IP信息失败: %s")

	return b
}

// newPrinter returns a printer for the closest supported language. Unknown or
// malformed tags fall back to English.
func newPrinter(lang string) *message.Printer {
	tag := language.English
	if lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			log.Warn().Err(err).Str("lang", lang).Msg("Invalid language tag, using English")
		} else {
			matcher := language.NewMatcher(supportedLanguages)
			_, idx, _ := matcher.Match(parsed)
			tag = supportedLanguages[idx]
		}
	}
	return message.NewPrinter(tag, message.Catalog(messages))
}
