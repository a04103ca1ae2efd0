// Command zentat converts fiat prices in HTML files to the target unit.
//
// A single document is read from a file or stdin and written to a file or
// stdout. A directory is walked and every .html/.htm file is written to the
// same relative path under the output directory.
//
// Usage:
//
//	zentat -rates rates.json -host shop.example.com -in page.html -out page.zec.html
//	zentat -fetch -rates rates.json -in ./site -out ./site-zec -compress
//	curl -s https://example.com | zentat -fetch -host example.com
package main
