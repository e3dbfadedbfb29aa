// Package eveapi reads the map/Jumps.xml document published by the EVE API.
//
// A document looks like:
//
//	<eveapi version="2">
//	  <currentTime>2015-10-06 14:07:09</currentTime>
//	  <result>
//	    <rowset name="solarSystems" key="solarSystemID" columns="solarSystemID,shipJumps">
//	      <row solarSystemID="30001984" shipJumps="9" />
//	    </rowset>
//	    <dataTime>2015-10-06 14:07:09</dataTime>
//	  </result>
//	  <cachedUntil>2015-10-06 15:07:09</cachedUntil>
//	</eveapi>
//
// Row attributes are read by position: the first is the entity id, the second
// the counter value.
package eveapi

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caeruleus1F/systemjumps/internal/domain"
)

// TimeLayout is the timestamp format used throughout the document.
const TimeLayout = "2006-01-02 15:04:05"

var (
	ErrMalformed    = errors.New("malformed document")
	ErrMissingField = errors.New("missing required field")
	ErrSourceError  = errors.New("source returned an error document")
)

type document struct {
	XMLName     xml.Name  `xml:"eveapi"`
	CurrentTime *string   `xml:"currentTime"`
	CachedUntil *string   `xml:"cachedUntil"`
	Result      *result   `xml:"result"`
	Error       *apiError `xml:"error"`
}

type result struct {
	DataTime *string `xml:"dataTime"`
	Rowset   *rowset `xml:"rowset"`
}

type rowset struct {
	Rows []row `xml:"row"`
}

type row struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type apiError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// Parse decodes a Jumps document. Any missing node or unreadable value fails
// the whole document; no partial result is returned.
func Parse(raw []byte) (domain.PullResult, error) {
	var doc document
	dec := xml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return domain.PullResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if doc.Error != nil {
		return domain.PullResult{}, fmt.Errorf("%w: code=%s %s", ErrSourceError, doc.Error.Code, strings.TrimSpace(doc.Error.Message))
	}

	if doc.Result == nil {
		return domain.PullResult{}, fmt.Errorf("%w: result", ErrMissingField)
	}
	if doc.Result.Rowset == nil {
		return domain.PullResult{}, fmt.Errorf("%w: result/rowset", ErrMissingField)
	}

	dataTime, err := parseTimeField("result/dataTime", doc.Result.DataTime)
	if err != nil {
		return domain.PullResult{}, err
	}
	currentTime, err := parseTimeField("currentTime", doc.CurrentTime)
	if err != nil {
		return domain.PullResult{}, err
	}
	cachedUntil, err := parseTimeField("cachedUntil", doc.CachedUntil)
	if err != nil {
		return domain.PullResult{}, err
	}

	entities := make([]domain.Entity, 0, len(doc.Result.Rowset.Rows))
	for i, r := range doc.Result.Rowset.Rows {
		e, err := r.entity()
		if err != nil {
			return domain.PullResult{}, fmt.Errorf("row %d: %w", i, err)
		}
		entities = append(entities, e)
	}

	return domain.PullResult{
		Entities:    entities,
		DataTime:    dataTime,
		CurrentTime: currentTime,
		CachedUntil: cachedUntil,
	}, nil
}

func (r row) entity() (domain.Entity, error) {
	if len(r.Attrs) < 2 {
		return domain.Entity{}, fmt.Errorf("%w: row has %d attributes, want 2", ErrMalformed, len(r.Attrs))
	}

	id := strings.TrimSpace(r.Attrs[0].Value)
	if id == "" {
		return domain.Entity{}, fmt.Errorf("%w: empty %s", ErrMalformed, r.Attrs[0].Name.Local)
	}

	value, err := strconv.ParseInt(strings.TrimSpace(r.Attrs[1].Value), 10, 64)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("%w: %s=%q: %v", ErrMalformed, r.Attrs[1].Name.Local, r.Attrs[1].Value, err)
	}

	return domain.Entity{ID: id, Value: value}, nil
}

func parseTimeField(name string, v *string) (time.Time, error) {
	if v == nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	t, err := ParseTime(*v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return t, nil
}

// ParseTime reads a document timestamp as UTC. RFC 3339 is accepted as well.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
