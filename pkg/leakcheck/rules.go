package leakcheck

import "regexp"

// Common TLDs only. Matching every TLD would flag sentences missing a space after a period.
// "me" and "us" are left out for the same reason ("yes.me too"); scheme and www forms still catch them.
const bareDomainTLDs = `com|net|org|edu|gov|io|co|ly|app|dev|info|biz|ca|uk|gg|tv|xyz|link|site|online|page|live`

var (
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,}`)

	// jane (at) example (dot) com, jane[at]example.com
	obfuscatedEmailPattern = regexp.MustCompile(
		`(?i)[a-z0-9._%+\-]+\s*[(\[{]\s*at\s*[)\]}]\s*[a-z0-9\-]+(?:\s*(?:[(\[{]\s*dot\s*[)\]}]|\.)\s*[a-z0-9\-]+)+`)

	schemeURLPattern = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+`)
	wwwURLPattern    = regexp.MustCompile(`(?i)\bwww\.[^\s<>"']+`)

	bareDomainPattern = regexp.MustCompile(
		`(?i)\b[a-z0-9](?:[a-z0-9\-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9\-]{0,61}[a-z0-9])?)*\.(?:` +
			bareDomainTLDs + `)\b(?:/[^\s<>"']*)?`)

	// @handle preceded by start of text or a character that cannot be part of an email.
	// The first handle character must be a letter or underscore so "@5pm" is not a handle.
	atHandlePattern = regexp.MustCompile(`(?:^|[^\w@.])(@[A-Za-z_](?:[A-Za-z0-9_]|\.[A-Za-z0-9_]){1,29})`)

	// "snap: jane.doe", "IG:@jane"
	platformHandlePattern = regexp.MustCompile(
		`(?i)\b(?:snapchat|snap|sc|insta(?:gram)?|ig|whats\s?app|telegram|discord|tiktok|kik|facebook|fb)\s*:\s*@?[a-z0-9_.]{2,30}`)

	// 7 to 15 digits, each optionally separated by up to three of: space - . ( )
	phonePattern = regexp.MustCompile(`\+?\(?\d(?:[\s\-.()]{0,3}\d){6,14}`)

	// 2024-06-15, 2024.06.15, 12.05.2024, 12 05 2024
	datePattern = regexp.MustCompile(
		`^(?:\d{4}[\s\-.]{1,2}\d{1,2}[\s\-.]{1,2}\d{1,2}|\d{1,2}[\s\-.]{1,2}\d{1,2}[\s\-.]{1,2}\d{4})$`)

	digitRunPattern = regexp.MustCompile(`\d+`)
)

// minSpacedPhoneDigits is the shortest run of single separated digits still
// treated as a phone number. Full numbers with an area code have at least ten.
const minSpacedPhoneDigits = 10

// rejectPhone drops phone-shaped matches that are dates or short counted lists
// such as "1 2 3 4 5 6 7".
func rejectPhone(matched string) bool {
	if datePattern.MatchString(matched) {
		return true
	}
	runs := digitRunPattern.FindAllString(matched, -1)
	if len(runs) >= minSpacedPhoneDigits {
		return false
	}
	for _, run := range runs {
		if len(run) > 1 {
			return false
		}
	}
	return len(runs) > 1
}

// DefaultRules returns the built-in rule set. Order matters only as the final
// tie-breaker between identical spans.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: KindEmail, Pattern: emailPattern},
		{Kind: KindEmail, Pattern: obfuscatedEmailPattern},
		{Kind: KindURL, Pattern: schemeURLPattern},
		{Kind: KindURL, Pattern: wwwURLPattern},
		{Kind: KindURL, Pattern: bareDomainPattern},
		{Kind: KindSocialHandle, Pattern: atHandlePattern, Group: 1},
		{Kind: KindSocialHandle, Pattern: platformHandlePattern},
		{Kind: KindPhone, Pattern: phonePattern, Reject: rejectPhone},
	}
}
