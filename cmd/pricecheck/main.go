package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/backend-tiket/internal/pricing"
)

type document struct {
	Items  []pricing.TicketLineItem `json:"items"`
	Coupon *pricing.AppliedCoupon   `json:"coupon"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run prices one cart document. Exit codes: 0 priced, 1 invalid cart, 2 usage or I/O error.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pricecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file   = fs.String("file", "-", "cart JSON document to price; - reads stdin")
		format = fs.String("format", "text", "output format: text or json")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}

	in := stdin
	if *file != "-" && *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(stderr, "open %s: %v\n", *file, err)
			return 2
		}
		defer f.Close()
		in = f
	}

	var doc document
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		var ve *pricing.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintf(stderr, "invalid cart: %v\n", ve)
			return 1
		}
		fmt.Fprintf(stderr, "decode cart: %v\n", err)
		return 2
	}

	res, err := pricing.Price(doc.Items, doc.Coupon)
	if err != nil {
		fmt.Fprintf(stderr, "invalid cart: %v\n", err)
		return 1
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "warning: %v\n", w)
	}

	if *format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(stderr, "write result: %v\n", err)
			return 2
		}
		return 0
	}
	writeText(stdout, res, doc.Coupon)
	return 0
}

func writeText(w io.Writer, res pricing.PricingResult, coupon *pricing.AppliedCoupon) {
	cur := res.Currency
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "EVENT\tTICKET\tQTY\tUNIT\tSUBTOTAL\tDISCOUNT\tCOMMISSION\tRULE\t")
	for _, l := range res.Lines {
		rule := "-"
		if l.AppliedRule != nil {
			rule = l.AppliedRule.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			l.EventID, l.TicketTypeID, l.Quantity,
			l.UnitPrice.Amount(cur), l.Subtotal.Amount(cur), l.BulkDiscount.Amount(cur), l.Commission.Amount(cur), rule)
	}
	_ = tw.Flush()

	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "subtotal:        %s\n", res.Subtotal.Format(cur))
	fmt.Fprintf(w, "bulk discount:   %s\n", res.BulkDiscountTotal.Format(cur))
	if res.HasCommission {
		fmt.Fprintf(w, "commission:      %s\n", res.CommissionTotal.Format(cur))
	}
	if coupon != nil {
		fmt.Fprintf(w, "coupon %s: %s\n", coupon.Code, res.CouponDiscountTotal.Format(cur))
	}
	fmt.Fprintf(w, "grand total:     %s\n", res.GrandTotal.Format(cur))
}
