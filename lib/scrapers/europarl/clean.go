package europarl

import (
	"regexp"

	"europarl-collector/lib/textutil"
)

// markup that survives text extraction, like literal line-break tags
var tagRegex = regexp.MustCompile(`<[^>]+>`)

// procedural notes and document references that add nothing to the prose.
// order matters, the later patterns assume whitespace has been collapsed.
var cleaningPasses = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(The sitting (?:was suspended|opened|closed|ended) at.*?\)`),
	regexp.MustCompile(`(?i)\(Voting time ended at.*?\)`),
	regexp.MustCompile(`(?i)\((?:debat|stemming|vraag|interventie)\)`),
	regexp.MustCompile(`(?i)\(Het woord wordt gevoerd door:.*?\)`),
	regexp.MustCompile(`(?i)(\(|\[)\s*(?:(?:[a-zA-Z]{2,3})\s*(?:|\s|))?\s*(?:artikel|rule|punt|item)\s*\d+(?:,\s*lid\s*\d+)?\s*(?:\s+\w+)?\s*(\)|\])`),
	regexp.MustCompile(`\[(COM|A)\d+-\d+(/\d+)?\]`),
	regexp.MustCompile(`\(?(?:http|https)://[^\s]+?\)`),
	regexp.MustCompile(`\[\s*\d{4}/\d{4}\(COD\)\]`),
	regexp.MustCompile(`\[\s*\d{4}/\d{4}\(INI\)\]`),
	regexp.MustCompile(`\[\s*\d{4}/\d{4}\(RSP\)\]`),
	regexp.MustCompile(`\[\s*\d{4}/\d{4}\(IMM\)\]`),
	regexp.MustCompile(`\[\s*\d{4}/\d{4}\(NLE\)\]`),
	regexp.MustCompile(`\[\s*\d{5}/\d{4}\s*-\s*C\d+-\d+/\d+\s*-\s*\d{4}/\d{4}\(NLE\)\]`),
	regexp.MustCompile(`\(“Stemmingsuitslagen”, punt \d+\)`),
	regexp.MustCompile(`\(de Voorzitter(?: maakt na de toespraak van.*?| weigert in te gaan op.*?| stemt toe| herinnert eraan dat de gedragsregels moeten worden nageleefd| neemt er akte van|)\)`),
	regexp.MustCompile(`(?i)\(zie bijlage.*?\)`),
	regexp.MustCompile(`\(\s*De vergadering wordt om.*?geschorst\.\)`),
	regexp.MustCompile(`\(\s*De vergadering wordt om.*?hervat\.\)`),
	regexp.MustCompile(`Volgens de “catch the eye”-procedure wordt het woord gevoerd door.*?\.`),
	regexp.MustCompile(`Het woord wordt gevoerd door .*?\.`),
	regexp.MustCompile(`De vergadering wordt om \d{1,2}\.\d{2} uur gesloten.`),
	regexp.MustCompile(`De vergadering wordt om \d{1,2}\.\d{2} uur geopend.`),
	regexp.MustCompile(`Het debat wordt gesloten.`),
	regexp.MustCompile(`Stemming:.*?\.`),
}

// CleanText strips leftover markup, procedural notes and document
// references out of extracted minutes text.
func CleanText(text string) string {
	text = tagRegex.ReplaceAllString(text, "")
	text = textutil.CollapseWhitespace(text)

	for _, pass := range cleaningPasses {
		text = pass.ReplaceAllString(text, "")
	}

	return textutil.CollapseWhitespace(text)
}
