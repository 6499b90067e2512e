package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/zhouzirui/medassist/backend/internal/model/pharmacy"
)

// resolveFormat turns "auto" into tsv on a terminal and json otherwise.
func resolveFormat(format string, out io.Writer) string {
	format = strings.ToLower(format)
	if format != "auto" {
		return format
	}
	file, ok := out.(*os.File)
	if !ok {
		return "json"
	}
	fd := file.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "tsv"
	}
	return "json"
}

func writePharmacies(w io.Writer, items []pharmacy.Pharmacy, includeHeader bool, format string) error {
	switch format {
	case "tsv":
		return writePharmaciesTSV(w, items, includeHeader)
	case "json":
		return writeJSON(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writePharmaciesTSV(w io.Writer, items []pharmacy.Pharmacy, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "id\tname\tlicense\tcity\tphone\tactive"); err != nil {
			return err
		}
	}
	for _, p := range items {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%t",
			p.ID,
			p.Name,
			p.LicenseNumber,
			p.Address.City,
			p.PhoneNumber,
			p.IsActive,
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
