package restface

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"reflect"
)

// CsvResponse is a CSV file with its first line split off as header.
type CsvResponse struct {
	HttpCode    int
	HttpHeaders http.Header
	CsvHeader   []string
	Rows        [][]string
}

var (
	csvRecordsType  = reflect.TypeOf([][]string(nil))
	csvResponseType = reflect.TypeOf((*CsvResponse)(nil))
)

// CsvDecoder decodes results of type [][]string and *CsvResponse from
// CSV bodies. Other types are passed to Next, JsonDecoder by default.
type CsvDecoder struct {
	Next Decoder
}

func (d CsvDecoder) Decode(r *http.Response, t reflect.Type) (interface{}, error) {
	switch t {
	case csvRecordsType:
		return csv.NewReader(r.Body).ReadAll()

	case csvResponseType:
		res := &CsvResponse{
			HttpCode:    r.StatusCode,
			HttpHeaders: r.Header.Clone(),
		}
		csvReader := csv.NewReader(r.Body)
		csvHeader, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return nil, err
		}
		res.CsvHeader = csvHeader
		for {
			record, err := csvReader.Read()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return res, nil
				}
				return nil, err
			}
			res.Rows = append(res.Rows, record)
		}
	}

	next := d.Next
	if next == nil {
		next = JsonDecoder{}
	}
	return next.Decode(r, t)
}

// CsvEncoder sends bodies of type [][]string as CSV. Other bodies are
// passed to Next, JsonEncoder by default.
type CsvEncoder struct {
	Next Encoder
}

func (e CsvEncoder) Encode(value interface{}, bodyType reflect.Type, t *Template) error {
	if bodyType != csvRecordsType {
		next := e.Next
		if next == nil {
			next = JsonEncoder{}
		}
		return next.Encode(value, bodyType, t)
	}

	var buf bytes.Buffer
	csvWriter := csv.NewWriter(&buf)
	csvWriter.UseCRLF = true
	if err := csvWriter.WriteAll(value.([][]string)); err != nil {
		return err
	}
	t.SetBody(buf.Bytes())
	setDefaultContentType(t, "text/csv")
	return nil
}
