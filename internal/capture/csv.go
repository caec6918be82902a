// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// TimeLayout is how entry times are rendered for operators.
const TimeLayout = "2006-01-02 15:04:05.000"

var cellReplacer = strings.NewReplacer("\n", "", "\r", "", ",", "", `"`, "")

// Row renders e as the columns of the capture table: time, slave address,
// function, data field length and the decoded data.
func Row(e Entry) []string {
	return []string{
		e.Time.Format(TimeLayout),
		fmt.Sprintf("%d = 0x%02X", e.SlaveAddress, e.SlaveAddress),
		e.Description,
		fmt.Sprint(e.Length),
		e.Summary,
	}
}

// WriteCSV writes one CRLF terminated row per entry, in the order given.
// Cells are stripped of line breaks, commas and quotes.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	for _, e := range entries {
		row := Row(e)
		for i := range row {
			row[i] = cellReplacer.Replace(row[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
