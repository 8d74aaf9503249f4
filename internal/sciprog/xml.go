package sciprog

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Science program documents are XML with an SpProg root. Container elements
// (SpObsFolder, SpOR, SpAND, SpSurveyContainer) nest arbitrarily; SpMSB
// leaves carry the remaining counter as an attribute. A survey's choose
// budget is a <choose> child element so serialization can reflect its
// decrements.

type msbXML struct {
	Remaining int         `xml:"remaining,attr"`
	Checksum  string      `xml:"checksum,attr"` // informational; recomputed on parse
	Title     string      `xml:"title"`
	Quality   *qualityXML `xml:"SpSiteQuality"`
	Obs       []obsXML    `xml:"SpObs"`
}

type obsXML struct {
	Instrument string  `xml:"instrument"`
	Target     string  `xml:"target"`
	Elapsed    float64 `xml:"elapsedTime"`
}

type qualityXML struct {
	TauMin    float64 `xml:"tauMin,attr"`
	TauMax    float64 `xml:"tauMax,attr"`
	SeeingMax float64 `xml:"seeingMax,attr"`
	CloudMax  float64 `xml:"cloudMax,attr"`
}

// Parse reads a science program document and builds the component forest.
// The checksum index is populated before return.
func Parse(r io.Reader) (*Program, error) {
	dec := xml.NewDecoder(r)

	var start *xml.StartElement
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("parse program: no SpProg element")
		}
		if err != nil {
			return nil, fmt.Errorf("parse program: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != "SpProg" {
				return nil, fmt.Errorf("parse program: unexpected root element %q", se.Name.Local)
			}
			start = &se
			break
		}
	}

	var name, telescope string
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "name":
			name = a.Value
		case "telescope":
			telescope = a.Value
		}
	}

	p := New(name, telescope)
	if err := p.parseChildren(dec, p.root); err != nil {
		return nil, err
	}
	p.LocateMSBs()
	return p, nil
}

// ParseFile reads a science program document from disk.
func ParseFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// parseChildren consumes tokens up to the parent's end element, appending
// components to parent as they are encountered.
func (p *Program) parseChildren(dec *xml.Decoder, parent NodeID) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse program: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "SpMSB":
				var mx msbXML
				if err := dec.DecodeElement(&mx, &t); err != nil {
					return fmt.Errorf("parse SpMSB: %w", err)
				}
				p.addParsedMSB(parent, mx)
			case "SpObsFolder":
				id := p.AddFolder(parent, KindObsFolder)
				if err := p.parseChildren(dec, id); err != nil {
					return err
				}
			case "SpOR":
				id := p.AddFolder(parent, KindOrFolder)
				if err := p.parseChildren(dec, id); err != nil {
					return err
				}
			case "SpAND":
				id := p.AddFolder(parent, KindAndFolder)
				if err := p.parseChildren(dec, id); err != nil {
					return err
				}
			case "SpSurveyContainer":
				id := p.AddSurvey(parent, -1)
				if err := p.parseChildren(dec, id); err != nil {
					return err
				}
				// choose defaults to observing every member when the
				// document does not say otherwise.
				if p.node(id).choose < 0 {
					p.node(id).choose = len(p.node(id).children)
				}
			case "choose":
				if p.node(parent).kind != KindSurvey {
					return fmt.Errorf("parse program: <choose> outside a survey container")
				}
				var v string
				if err := dec.DecodeElement(&v, &t); err != nil {
					return fmt.Errorf("parse choose: %w", err)
				}
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("parse choose: %w", err)
				}
				p.node(parent).choose = n
			default:
				// Unknown elements (notes, display hints) are skipped.
				if err := dec.Skip(); err != nil {
					return fmt.Errorf("parse program: %w", err)
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (p *Program) addParsedMSB(parent NodeID, mx msbXML) {
	var quality *SiteQuality
	if mx.Quality != nil {
		quality = &SiteQuality{
			TauMin:    mx.Quality.TauMin,
			TauMax:    mx.Quality.TauMax,
			SeeingMax: mx.Quality.SeeingMax,
			CloudMax:  mx.Quality.CloudMax,
		}
	}
	obs := make([]Obs, 0, len(mx.Obs))
	for _, o := range mx.Obs {
		obs = append(obs, Obs{Instrument: o.Instrument, Target: o.Target, Elapsed: o.Elapsed})
	}
	p.AddConstrainedMSB(parent, mx.Title, mx.Remaining, quality, obs...)
}

// Write serializes the program, reflecting the current tree shape:
// dissolved containers are gone, removed MSBs carry their negative
// remaining counters and surveys their decremented choose budgets.
func (p *Program) Write(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "SpProg"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "name"}, Value: p.Name},
			{Name: xml.Name{Local: "telescope"}, Value: p.Telescope},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	for _, c := range p.node(p.root).children {
		if err := p.writeNode(enc, c); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	return nil
}

// WriteString serializes the program to a string.
func (p *Program) WriteString() (string, error) {
	var b strings.Builder
	if err := p.Write(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *Program) writeNode(enc *xml.Encoder, id NodeID) error {
	n := p.node(id)
	if n.kind == KindMSB {
		return p.writeMSB(enc, id)
	}

	start := xml.StartElement{Name: xml.Name{Local: n.kind.String()}}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("write %s: %w", n.kind, err)
	}
	if n.kind == KindSurvey {
		choose := xml.StartElement{Name: xml.Name{Local: "choose"}}
		if err := enc.EncodeElement(n.choose, choose); err != nil {
			return fmt.Errorf("write choose: %w", err)
		}
	}
	for _, c := range n.children {
		if err := p.writeNode(enc, c); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("write %s: %w", n.kind, err)
	}
	return nil
}

func (p *Program) writeMSB(enc *xml.Encoder, id NodeID) error {
	n := p.node(id)
	mx := msbXML{
		Remaining: n.remaining,
		Checksum:  p.checksumOf(id),
		Title:     n.title,
	}
	if n.quality != nil {
		mx.Quality = &qualityXML{
			TauMin:    n.quality.TauMin,
			TauMax:    n.quality.TauMax,
			SeeingMax: n.quality.SeeingMax,
			CloudMax:  n.quality.CloudMax,
		}
	}
	for _, o := range n.obs {
		mx.Obs = append(mx.Obs, obsXML{Instrument: o.Instrument, Target: o.Target, Elapsed: o.Elapsed})
	}
	// The remaining and checksum attributes come from the struct tags.
	start := xml.StartElement{Name: xml.Name{Local: "SpMSB"}}
	if err := enc.EncodeElement(mx, start); err != nil {
		return fmt.Errorf("write SpMSB: %w", err)
	}
	return nil
}
