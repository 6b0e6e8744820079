package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// extractDOCX returns every top-level body paragraph followed by a newline.
func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	paragraphs, err := bodyParagraphs(doc.Editable().GetContent())
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, p := range paragraphs {
		buf.WriteString(p)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

// bodyParagraphs walks word/document.xml and collects the text of each w:p that is a
// direct child of w:body. Paragraphs nested in tables or text boxes are skipped.
func bodyParagraphs(raw string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var (
		stack      []string
		paragraphs []string
		current    strings.Builder
		inPara     bool
		paraDepth  int
		inText     bool
		skipDepth  int
		sawBody    bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			stack = append(stack, name)
			depth := len(stack)
			if name == "body" {
				sawBody = true
			}
			if skipDepth > 0 {
				continue
			}
			switch {
			case name == "p" && !inPara && depth >= 2 && stack[depth-2] == "body":
				inPara = true
				paraDepth = depth
				current.Reset()
			case !inPara:
			case name == "txbxContent" || name == "del" || name == "instrText":
				skipDepth = depth
			case name == "t":
				inText = true
			case name == "tab":
				current.WriteString("\t")
			case name == "br" || name == "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			depth := len(stack)
			name := localName(t.Name)
			switch {
			case skipDepth > 0:
				if depth == skipDepth {
					skipDepth = 0
				}
			case inPara && name == "t":
				inText = false
			case inPara && depth == paraDepth:
				paragraphs = append(paragraphs, current.String())
				inPara = false
			}
			if depth > 0 {
				stack = stack[:depth-1]
			}
		case xml.CharData:
			if inPara && inText && skipDepth == 0 {
				current.Write(t)
			}
		}
	}

	if !sawBody {
		return nil, errors.New("document body not found")
	}
	return paragraphs, nil
}

func localName(n xml.Name) string {
	switch n.Space {
	case "", "w", wordNS:
		return n.Local
	default:
		// Only WordprocessingML elements carry paragraph text.
		return "~" + n.Local
	}
}
