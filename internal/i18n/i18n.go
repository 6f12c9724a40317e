// Package i18n provides localized user-facing messages for the tr/en product
// surfaces. Only business messages live here (credit-limit prompts, usage
// alerts); internal errors are never localized.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English, // first tag is the fallback
	language.Turkish,
}

var matcher = language.NewMatcher(supported)

// Match resolves an Accept-Language header value (or a bare language code)
// to "en" or "tr". Unknown or empty input falls back to English.
func Match(acceptLanguage string) string {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	base, _ := tag.Base()
	if base.String() == "tr" {
		return "tr"
	}
	return "en"
}

// LimitExceeded is the business message shown when a user has spent their
// monthly credit pool. It reports usage against the limit and prompts an
// upgrade; it is not an error.
func LimitExceeded(lang string, used, limit int) string {
	if lang == "tr" {
		return fmt.Sprintf("Bu ay %d/%d kredinizi kullandınız. Devam etmek için planınızı yükseltin.", used, limit)
	}
	return fmt.Sprintf("You have used %d/%d credits this month. Upgrade your plan to continue.", used, limit)
}

// UsageAlertSubject is the subject line for usage threshold emails.
func UsageAlertSubject(lang string, threshold float64) string {
	if lang == "tr" {
		if threshold >= 1.0 {
			return "AnimatePDF: aylık kredi limitinize ulaştınız"
		}
		return "AnimatePDF: aylık kredi limitinize yaklaşıyorsunuz"
	}
	if threshold >= 1.0 {
		return "AnimatePDF: you have reached your monthly credit limit"
	}
	return "AnimatePDF: you are close to your monthly credit limit"
}

// UsageAlertBody is the plain-text body for usage threshold emails.
func UsageAlertBody(lang string, used, limit int, planName string) string {
	if lang == "tr" {
		return fmt.Sprintf(`Merhaba,

%s planınızda bu ay %d/%d kredi kullandınız.

Daha fazla PDF analizi ve animasyon oluşturmak için planınızı yükseltebilirsiniz.

AnimatePDF Ekibi
`, planName, used, limit)
	}
	return fmt.Sprintf(`Hi,

You have used %d/%d credits on your %s plan this month.

Upgrade your plan to keep analyzing PDFs and creating animations.

The AnimatePDF Team
`, used, limit, planName)
}
