// Package document renders session paperwork (convocation notices and actas)
// as paginated PDF files. Rendering never fails on malformed input: missing
// fields fall back to literal placeholders.
package document

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageLeft     = 20.0
	pageTop      = 20.0
	pageRight    = 20.0
	contentWidth = 170.0
	lineHeight   = 5.5
	// breakThreshold is the vertical cursor position past which a new agenda
	// block starts on a fresh page instead of overflowing the margin.
	breakThreshold = 250.0
)

// File is a rendered document plus its base64 form for mail attachment.
type File struct {
	Name   string
	Bytes  []byte
	Base64 string
}

// Empty reports whether rendering produced no usable output.
func (f File) Empty() bool {
	return len(f.Bytes) == 0
}

// Item is one agenda entry with its optional recorded resolution.
type Item struct {
	Title        string
	Presenter    string
	Duration     int
	Votable      bool
	Summary      string
	VotesFor     int
	VotesAgainst int
	Abstentions  int
	Responsible  string
	LinkURL      string
	LinkLabel    string
}

// Justification is one recorded absence entry.
type Justification struct {
	Informer string
	Absentee string
	Reason   string
}

// ActaData carries everything needed to render the minutes document.
type ActaData struct {
	SessionID      string
	SessionType    string
	Date           string
	Time           string
	Modality       string
	Platform       string
	Location       string
	Content        string
	Items          []Item
	Justifications []Justification
}

// ConvocationData carries everything needed to render the convocation notice.
type ConvocationData struct {
	SessionID   string
	SessionType string
	Date        string
	Time        string
	Modality    string
	Platform    string
	Location    string
	Items       []Item
}

// RenderActa produces the acta PDF for a session. Placeholders substitute for
// missing fields; the zero File is returned only when the PDF engine itself
// fails to serialize.
func RenderActa(data ActaData) File {
	pdf, tr := newPage()

	writeTitle(pdf, tr, "Acta de Sesión "+orPlaceholder(data.SessionType, "(sin tipo)"))
	writeMeta(pdf, tr, data.Date, data.Time, data.Modality, data.Platform, data.Location)

	if content := data.Content; content != "" {
		sectionHeader(pdf, tr, "Desarrollo de la sesión")
		pdf.MultiCell(contentWidth, lineHeight, tr(content), "", "L", false)
		pdf.Ln(3)
	}

	for i, item := range data.Items {
		ensureRoom(pdf)
		writeItemHeading(pdf, tr, i+1, item)
		if item.Summary != "" {
			pdf.MultiCell(contentWidth, lineHeight, tr(item.Summary), "", "L", false)
		}
		if item.Votable {
			votes := fmt.Sprintf("A favor: %d    En contra: %d    Abstenciones: %d",
				item.VotesFor, item.VotesAgainst, item.Abstentions)
			pdf.CellFormat(contentWidth, lineHeight, tr(votes), "", 1, "L", false, 0, "")
		}
		if item.Responsible != "" {
			pdf.CellFormat(contentWidth, lineHeight, tr("Responsable: "+item.Responsible), "", 1, "L", false, 0, "")
		}
		writeItemLink(pdf, tr, item)
		pdf.Ln(2)
	}

	if len(data.Justifications) > 0 {
		ensureRoom(pdf)
		sectionHeader(pdf, tr, "Justificación de ausencias")
		for _, j := range data.Justifications {
			line := fmt.Sprintf("%s (informa %s): %s",
				orPlaceholder(j.Absentee, "(sin ausente)"),
				orPlaceholder(j.Informer, "(sin informante)"),
				orPlaceholder(j.Reason, "(sin motivo)"))
			pdf.MultiCell(contentWidth, lineHeight, tr(line), "", "L", false)
		}
	}

	return finish(pdf, "acta-"+orPlaceholder(data.SessionID, "sesion")+".pdf")
}

// RenderConvocation produces the convocation notice PDF sent with session
// announcements.
func RenderConvocation(data ConvocationData) File {
	pdf, tr := newPage()

	writeTitle(pdf, tr, "Convocatoria a Sesión "+orPlaceholder(data.SessionType, "(sin tipo)"))
	writeMeta(pdf, tr, data.Date, data.Time, data.Modality, data.Platform, data.Location)

	sectionHeader(pdf, tr, "Puntos de agenda")
	for i, item := range data.Items {
		ensureRoom(pdf)
		writeItemHeading(pdf, tr, i+1, item)
		writeItemLink(pdf, tr, item)
		pdf.Ln(1)
	}

	return finish(pdf, "convocatoria-"+orPlaceholder(data.SessionID, "sesion")+".pdf")
}

func newPage() (*gofpdf.Fpdf, func(string) string) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageLeft, pageTop, pageRight)
	pdf.AddPage()
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func writeTitle(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentWidth, 9, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 11)
}

func writeMeta(pdf *gofpdf.Fpdf, tr func(string) string, date, hour, modality, platform, location string) {
	meta := fmt.Sprintf("Fecha: %s    Hora: %s    Modalidad: %s",
		orPlaceholder(date, "(sin fecha)"),
		orPlaceholder(hour, "(sin hora)"),
		orPlaceholder(modality, "(sin modalidad)"))
	pdf.CellFormat(contentWidth, lineHeight, tr(meta), "", 1, "L", false, 0, "")
	if platform != "" {
		pdf.CellFormat(contentWidth, lineHeight, tr("Plataforma: "+platform), "", 1, "L", false, 0, "")
	}
	if location != "" {
		pdf.CellFormat(contentWidth, lineHeight, tr("Ubicación: "+location), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
}

func sectionHeader(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentWidth, 7, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
}

func writeItemHeading(pdf *gofpdf.Fpdf, tr func(string) string, number int, item Item) {
	pdf.SetFont("Helvetica", "B", 11)
	heading := fmt.Sprintf("%d. %s", number, orPlaceholder(item.Title, "(sin título)"))
	pdf.MultiCell(contentWidth, lineHeight, tr(heading), "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	detail := fmt.Sprintf("Expositor: %s    Duración: %d min",
		orPlaceholder(item.Presenter, "(sin expositor)"), item.Duration)
	pdf.CellFormat(contentWidth, lineHeight, tr(detail), "", 1, "L", false, 0, "")
}

// writeItemLink renders the optional document link as colored underlined text
// whose clickable region matches the rendered label.
func writeItemLink(pdf *gofpdf.Fpdf, tr func(string) string, item Item) {
	if item.LinkURL == "" {
		return
	}
	label := item.LinkLabel
	if label == "" {
		label = item.LinkURL
	}
	pdf.SetTextColor(21, 93, 252)
	pdf.SetFont("Helvetica", "U", 11)
	pdf.WriteLinkString(lineHeight, tr(label), item.LinkURL)
	pdf.Ln(lineHeight)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
}

func ensureRoom(pdf *gofpdf.Fpdf) {
	if pdf.GetY() > breakThreshold {
		pdf.AddPage()
	}
}

func finish(pdf *gofpdf.Fpdf, name string) File {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return File{Name: name}
	}
	return File{
		Name:   name,
		Bytes:  buf.Bytes(),
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
}

func orPlaceholder(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}
