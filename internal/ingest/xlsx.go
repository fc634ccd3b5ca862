package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Minimal XLSX reader covering the fallback contract: first worksheet,
// shared strings, inline strings, numeric, boolean and date-styled cells.
// An .xlsx file is a zip archive of XML parts.

type xlsxSST struct {
	SI []xlsxSI `xml:"si"`
}

type xlsxSI struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (si xlsxSI) text() string {
	if len(si.Runs) == 0 {
		return si.T
	}
	var sb strings.Builder
	for _, r := range si.Runs {
		sb.WriteString(r.T)
	}
	return sb.String()
}

type xlsxWorksheet struct {
	SheetData struct {
		Rows []xlsxRow `xml:"row"`
	} `xml:"sheetData"`
}

type xlsxRow struct {
	Cells []xlsxCell `xml:"c"`
}

type xlsxCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Style  int    `xml:"s,attr"`
	Value  string `xml:"v"`
	Inline struct {
		T string `xml:"t"`
	} `xml:"is"`
}

type xlsxStyles struct {
	NumFmts struct {
		NumFmt []struct {
			ID   int    `xml:"numFmtId,attr"`
			Code string `xml:"formatCode,attr"`
		} `xml:"numFmt"`
	} `xml:"numFmts"`
	CellXfs struct {
		Xf []struct {
			NumFmtID int `xml:"numFmtId,attr"`
		} `xml:"xf"`
	} `xml:"cellXfs"`
}

func parseXLSX(data []byte) (*rawTable, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening xlsx archive: %w", err)
	}

	var sheetNames []string
	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheetNames = append(sheetNames, f.Name)
		}
	}
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("no worksheet found in archive")
	}
	sort.Strings(sheetNames)

	sst, err := readSharedStrings(parts["xl/sharedStrings.xml"])
	if err != nil {
		return nil, err
	}
	dateStyles, err := readDateStyles(parts["xl/styles.xml"])
	if err != nil {
		return nil, err
	}

	var ws xlsxWorksheet
	if err := decodePart(sheetNames[0], parts[sheetNames[0]], &ws); err != nil {
		return nil, err
	}
	if len(ws.SheetData.Rows) == 0 {
		return &rawTable{}, nil
	}

	grid := make([][]any, 0, len(ws.SheetData.Rows))
	for _, row := range ws.SheetData.Rows {
		var cells []any
		for _, c := range row.Cells {
			idx := columnIndex(c.Ref)
			if idx < 0 {
				idx = len(cells)
			}
			for len(cells) <= idx {
				cells = append(cells, nil)
			}
			v, err := decodeCell(c, sst, dateStyles)
			if err != nil {
				return nil, err
			}
			cells[idx] = v
		}
		grid = append(grid, cells)
	}

	header := make([]string, len(grid[0]))
	for i, v := range grid[0] {
		header[i] = cellString(v)
	}

	return &rawTable{header: header, records: grid[1:]}, nil
}

func decodePart(name string, f *zip.File, out any) error {
	if f == nil {
		return fmt.Errorf("missing archive part: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := xml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func readSharedStrings(f *zip.File) ([]string, error) {
	if f == nil {
		return nil, nil
	}
	var sst xlsxSST
	if err := decodePart("xl/sharedStrings.xml", f, &sst); err != nil {
		return nil, err
	}
	strs := make([]string, len(sst.SI))
	for i, si := range sst.SI {
		strs[i] = si.text()
	}
	return strs, nil
}

// builtinDateFormats are the SpreadsheetML built-in number format ids that
// render as dates or times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true,
	20: true, 21: true, 22: true, 45: true, 46: true, 47: true,
}

// readDateStyles returns, per cell style index, whether the style renders
// the cell as a date/time.
func readDateStyles(f *zip.File) ([]bool, error) {
	if f == nil {
		return nil, nil
	}
	var styles xlsxStyles
	if err := decodePart("xl/styles.xml", f, &styles); err != nil {
		return nil, err
	}

	customDate := make(map[int]bool, len(styles.NumFmts.NumFmt))
	for _, nf := range styles.NumFmts.NumFmt {
		customDate[nf.ID] = looksLikeDateFormat(nf.Code)
	}

	out := make([]bool, len(styles.CellXfs.Xf))
	for i, xf := range styles.CellXfs.Xf {
		out[i] = builtinDateFormats[xf.NumFmtID] || customDate[xf.NumFmtID]
	}
	return out, nil
}

func looksLikeDateFormat(code string) bool {
	lower := strings.ToLower(code)
	return strings.ContainsAny(lower, "ydh") || strings.Contains(lower, "mm")
}

func decodeCell(c xlsxCell, sst []string, dateStyles []bool) (any, error) {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(c.Value)
		if err != nil || idx < 0 || idx >= len(sst) {
			return nil, fmt.Errorf("invalid shared string reference %q", c.Value)
		}
		return sst[idx], nil
	case "b":
		return c.Value == "1", nil
	case "str":
		return c.Value, nil
	case "inlineStr":
		return c.Inline.T, nil
	default: // numeric
		if c.Value == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric cell %q: %w", c.Value, err)
		}
		if c.Style >= 0 && c.Style < len(dateStyles) && dateStyles[c.Style] {
			return excelDate(f), nil
		}
		return f, nil
	}
}

// excelEpoch is the zero of the 1900 date system (serial 1 = 1900-01-01,
// with the historical off-by-two for the phantom leap day).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func excelDate(serial float64) time.Time {
	ms := math.Round(serial * 24 * 60 * 60 * 1000)
	return excelEpoch.Add(time.Duration(ms) * time.Millisecond)
}

// columnIndex converts the letter part of a cell reference ("C7" -> 2).
// Returns -1 when the reference carries no letters.
func columnIndex(ref string) int {
	idx := 0
	seen := false
	for i := 0; i < len(ref); i++ {
		ch := ref[i]
		if ch >= 'A' && ch <= 'Z' {
			idx = idx*26 + int(ch-'A'+1)
			seen = true
		} else {
			break
		}
	}
	if !seen {
		return -1
	}
	return idx - 1
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return isoTimestamp(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
