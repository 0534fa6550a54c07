// Package tei renders a critical apparatus as a TEI P5 document.
package tei

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"prism-backend/engine"
)

// Namespace is the TEI P5 namespace
const Namespace = "http://www.tei-c.org/ns/1.0"

// ReaderWitness marks the reading the reader chose
const ReaderWitness = "#reader"

type document struct {
	XMLName xml.Name `xml:"TEI"`
	Xmlns   string   `xml:"xmlns,attr"`
	Text    text     `xml:"text"`
}

type text struct {
	Body body `xml:"body"`
}

type body struct {
	LineGroup lineGroup `xml:"lg"`
}

type lineGroup struct {
	Type  string `xml:"type,attr"`
	ID    string `xml:"xml:id,attr,omitempty"`
	Lines []line `xml:"l"`
}

type line struct {
	N   string `xml:"n,attr"`
	App app    `xml:"app"`
}

type app struct {
	Lemma    string    `xml:"lem"`
	Readings []reading `xml:"rdg"`
}

type reading struct {
	Ana  string `xml:"ana,attr,omitempty"`
	Wit  string `xml:"wit,attr,omitempty"`
	Text string `xml:",chardata"`
}

// Render writes the apparatus for documentID to w
func Render(w io.Writer, documentID string, apparatus []engine.ApparatusLine) error {
	doc := document{
		Xmlns: Namespace,
		Text: text{Body: body{LineGroup: lineGroup{
			Type:  "poem",
			ID:    documentID,
			Lines: make([]line, 0, len(apparatus)),
		}}},
	}
	for _, entry := range apparatus {
		l := line{
			N:   strconv.Itoa(entry.N),
			App: app{Lemma: entry.Base, Readings: make([]reading, 0, len(entry.Readings))},
		}
		for _, r := range entry.Readings {
			rdg := reading{Ana: r.Analysis(), Text: r.Text}
			if r.Effective {
				rdg.Wit = ReaderWitness
			}
			l.App.Readings = append(l.App.Readings, rdg)
		}
		doc.Text.Body.LineGroup.Lines = append(doc.Text.Body.LineGroup.Lines, l)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode tei: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return nil
}

// RenderBytes is Render into a byte slice
func RenderBytes(documentID string, apparatus []engine.ApparatusLine) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, documentID, apparatus); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
