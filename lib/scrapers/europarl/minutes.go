package europarl

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"

	"europarl-collector/lib/textutil"
)

// the doceo minutes documents use openoffice-era namespaces
const textNamespace = "http://openoffice.org/2000/text"
const tableNamespace = "http://openoffice.org/2000/table"

// sections of the minutes that carry narrative dutch prose. everything
// outside them is layout, vote tables or boilerplate.
var narrativeSections = []string{
	"PV.Other.Text",
	"PV.Debate.Text",
	"PV.Vote.Text",
	"PV.Sitting.Resumption.Text",
	"PV.Approval.Text",
	"PV.Agenda.Text",
	"PV.Sitting.Closure.Text",
}

var narrativeSectionSet = func() map[string]bool {
	set := map[string]bool{}
	for _, name := range narrativeSections {
		set[name] = true
	}
	return set
}()

// documents in the wild declare the namespaces inconsistently, accept both
// the resolved uri and a bare prefix
func isTextSpace(space string) bool {
	return space == textNamespace || space == "text"
}

func isTableSpace(space string) bool {
	return space == tableNamespace || space == "table"
}

// ExtractDutchText pulls the narrative paragraphs out of a minutes xml
// document, filters out name lists and boilerplate and returns the cleaned
// text. ok is false when the document does not parse or nothing substantive
// remains after cleaning.
func ExtractDutchText(content []byte) (string, bool) {
	paragraphs, err := collectParagraphs(content)
	if err != nil || len(paragraphs) == 0 {
		return "", false
	}

	final := CleanText(strings.Join(paragraphs, "\n"))
	if final == "" || utf8.RuneCountInString(final) <= 50 {
		return "", false
	}
	return final, true
}

// collectParagraphs walks the document once and gathers the text of every
// `text:p` paragraph that sits inside a narrative section and outside any
// `table:table`. results are grouped by section, in the canonical section
// order, paragraphs in document order within each.
func collectParagraphs(content []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	// the archive serves occasionally sloppy markup, parse it the tolerant way
	decoder.Strict = false
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	bySection := map[string][]string{}

	// stack of open narrative sections, innermost last
	var sectionStack []string
	tableDepth := 0

	// paragraph capture state
	inParagraph := false
	paragraphDepth := 0
	paragraphSection := ""
	var text strings.Builder
	var oratorText strings.Builder
	capturingOrator := false
	oratorSeen := false
	sawOratorChild := false
	sawAttendanceChild := false

	flushParagraph := func() {
		content := strings.TrimSpace(text.String())
		if content == "" {
			return
		}

		// attendance and speaker lists masquerade as paragraphs, drop the
		// ones that are nothing but the name list
		if sawOratorChild || sawAttendanceChild {
			nameList := strings.TrimSpace(oratorText.String())
			if utf8.RuneCountInString(content) < 100 && nameList != "" && nameList == content {
				return
			}
		}

		// very short fragments without a real word are numbering or layout junk
		if utf8.RuneCountInString(content) < 20 && !textutil.HasSubstantiveWord(content) {
			return
		}

		bySection[paragraphSection] = append(bySection[paragraphSection], content)
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if inParagraph {
				paragraphDepth++
				if paragraphDepth == 1 {
					switch t.Name.Local {
					case "Orator.List.Text":
						sawOratorChild = true
						// only the first such child counts as the name list
						if !oratorSeen {
							oratorSeen = true
							capturingOrator = true
						}
					case "Attendance.Participant.Name":
						sawAttendanceChild = true
					}
				}
				continue
			}

			if isTableSpace(t.Name.Space) && t.Name.Local == "table" {
				tableDepth++
				continue
			}
			if narrativeSectionSet[t.Name.Local] {
				sectionStack = append(sectionStack, t.Name.Local)
				continue
			}
			if isTextSpace(t.Name.Space) && t.Name.Local == "p" &&
				len(sectionStack) > 0 && tableDepth == 0 {
				inParagraph = true
				paragraphDepth = 0
				paragraphSection = sectionStack[len(sectionStack)-1]
				text.Reset()
				oratorText.Reset()
				capturingOrator = false
				oratorSeen = false
				sawOratorChild = false
				sawAttendanceChild = false
			}

		case xml.EndElement:
			if inParagraph {
				if paragraphDepth == 0 {
					flushParagraph()
					inParagraph = false
					continue
				}
				paragraphDepth--
				if capturingOrator && paragraphDepth == 0 {
					capturingOrator = false
				}
				continue
			}

			if isTableSpace(t.Name.Space) && t.Name.Local == "table" && tableDepth > 0 {
				tableDepth--
				continue
			}
			if len(sectionStack) > 0 && sectionStack[len(sectionStack)-1] == t.Name.Local {
				sectionStack = sectionStack[:len(sectionStack)-1]
			}

		case xml.CharData:
			if inParagraph {
				text.Write(t)
				if capturingOrator {
					oratorText.Write(t)
				}
			}
		}
	}

	var out []string
	for _, name := range narrativeSections {
		out = append(out, bySection[name]...)
	}
	return out, nil
}
