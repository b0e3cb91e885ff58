package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/lumenshop/storefront/internal/domain/catalog"
	"github.com/lumenshop/storefront/internal/domain/checkout"
	"github.com/lumenshop/storefront/internal/service"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProducts(w io.Writer, products []catalog.Product) error {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products match.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\t")
	for _, p := range products {
		name := p.Name
		if p.IsFeatured {
			name += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t\n", p.ID, name, p.Category, checkout.FormatMoney(p.Price), p.Stock)
	}
	return tw.Flush()
}

func printProduct(w io.Writer, p *catalog.Product) {
	fmt.Fprintf(w, "%s (#%d)\n", p.Name, p.ID)
	fmt.Fprintf(w, "  Slug:      %s\n", p.Slug)
	fmt.Fprintf(w, "  Category:  %s\n", p.Category)
	fmt.Fprintf(w, "  Price:     %s\n", checkout.FormatMoney(p.Price))
	if p.InStock() {
		fmt.Fprintf(w, "  Stock:     %d\n", p.Stock)
	} else {
		fmt.Fprintf(w, "  Stock:     out of stock\n")
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "  Tags:      %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n  %s\n", p.Description)
	}
}

func printCategories(w io.Writer, cats []catalog.Category) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\t")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t\n", c.Slug, c.Name)
	}
	return tw.Flush()
}

func printCart(w io.Writer, view service.CartView) error {
	if len(view.Items) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tQTY\tPRICE\tTOTAL\t")
	for _, l := range view.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t\n",
			l.ID, l.Name, l.Quantity, checkout.FormatMoney(l.UnitPrice), checkout.FormatMoney(l.LineTotal()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d item(s), subtotal %s\n", view.ItemCount, view.SubtotalDisplay)
	return nil
}

func printQuote(w io.Writer, q service.Quote) {
	fmt.Fprintf(w, "Items:     %d\n", q.ItemCount)
	fmt.Fprintf(w, "Subtotal:  %s\n", q.Display.Subtotal)
	fmt.Fprintf(w, "Shipping:  %s (%s)\n", q.Display.ShippingCost, q.Totals.Method)
	fmt.Fprintf(w, "Tax:       %s\n", q.Display.TaxAmount)
	fmt.Fprintf(w, "Total:     %s\n", q.Display.Total)
}

func printOrders(w io.Writer, orders []service.Order) error {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tPLACED\tITEMS\tSHIPPING\tTOTAL\tCUSTOMER\t")
	for _, o := range orders {
		customer := o.Customer
		if customer == "" {
			customer = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t\n",
			o.ID, o.PlacedAt.Local().Format("2006-01-02 15:04"), o.ItemCount, o.Totals.Method, o.Display.Total, customer)
	}
	return tw.Flush()
}
