package detection

import "regexp"

// quickDetect is a cheap money-shaped pre-filter. A symbol only counts when a
// digit follows it, so cashtags like "$AAPL" never pass.
var quickDetect = regexp.MustCompile(`(?i)[$€£¥₩₹][\s\x{00A0}\x{202F}]*\d|\d[\s\x{00A0}\x{202F}]*[円元]|\b(?:USD|EUR|GBP|JPY|CAD|AUD|CHF|CNY|KRW|INR|BRL|MXN)\b|\d,-|\bbtw\b|\beuro\b|\d,\d{2}\b|\d[kKMBT]\b`)

// Phrase shapes that contain numbers but are not prices.
var nonPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)out of \d`),
	regexp.MustCompile(`(?i)\d+\s*stars?`),
	regexp.MustCompile(`(?i)\d+[KMB]?\+?\s*(?:bought|sold|reviews?|ratings?)`),
	regexp.MustCompile(`^\d+(?:\.\d+)?$`),
	regexp.MustCompile(`^\(\d`),
	regexp.MustCompile(`(?i)subscribe`),
}

// LooksLikePrice reports whether text might contain a price.
func LooksLikePrice(text string) bool {
	return quickDetect.MatchString(text)
}

// IsNonPrice reports whether text matches a known non-price phrase shape
// such as a rating, a sales count or subscription copy.
func IsNonPrice(text string) bool {
	for _, re := range nonPricePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
