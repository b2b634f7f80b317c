// Command sample_listing renders an Outstanding Sales Order Listing PDF in the
// layout the extractor expects, for exercising the webhook end to end.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

type sampleLine struct {
	item, description, location string
	qty                         int
}

type sampleOrder struct {
	number, customer string
	lines            []sampleLine
}

var sampleOrders = []sampleOrder{
	{"SO-1001", "ABC TRADING SDN BHD", []sampleLine{
		{"X1-100", "WIDGET 100MM", "AVINA14", 10},
		{"X1-200", "WIDGET 200MM", "AVINA14", 4},
	}},
	{"SO-1002", "XYZ ENTERPRISE", []sampleLine{
		{"G2-050", "GADGET 50", "AVINA15", 25},
	}},
}

func main() {
	out := flag.String("out", "SEM105.pdf", "output file")
	qr := flag.String("qr", "", "text for a QR code in the page corner, e.g. the webhook URL")
	flag.Parse()

	delivery := time.Now().AddDate(0, 0, 14).Format("02/01/06")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(10, 15, "Outstanding Sales Order Listing")
	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(10, 22, "Printed "+time.Now().Format("02/01/2006 15:04"))
	pdf.Text(10, 32, "No Item Code Description Location Del. Date Qty")

	y := 40.0
	seq := 1
	for _, o := range sampleOrders {
		pdf.Text(10, y, o.number+" "+o.customer)
		y += 6
		for _, l := range o.lines {
			pdf.Text(10, y, fmt.Sprintf("%d %s %s %s %s %d", seq, l.item, l.description, l.location, delivery, l.qty))
			seq++
			y += 6
		}
		y += 2
	}

	if *qr != "" {
		png, err := qrcode.Encode(*qr, qrcode.Medium, 256)
		if err != nil {
			log.Fatalf("❌ QR code: %v", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("qr", 170, 8, 30, 30, false, opts, 0, "")
	}

	if err := pdf.OutputFileAndClose(*out); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", *out, err)
	}
	log.Printf("📄 Wrote %s (%d orders)", *out, len(sampleOrders))
}
