// Package conversion turns parsed prices into target-unit amounts and
// formats them for display.
//
// Precision is either fixed or automatic. Automatic precision always shows
// at least two decimals and expands toward four significant figures, capped
// at eight. Amounts of a thousand and above are rescaled with a magnitude
// word:
//
//	FormatWithUnit(1234567, Auto(), "ZEC")  // "1.235 million ZEC"
//	FormatAmount(0.00001, Auto())           // "0.00001000"
package conversion
