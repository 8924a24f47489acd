// Package loader reads student, seminar, and search-config documents
// from CSV, JSON, and YAML files and validates them against each
// other before they reach the optimizer.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/annealloc/internal/assign"
	"github.com/copyleftdev/annealloc/internal/errors"
)

// studentRecord is the JSON/YAML shape of one student.
type studentRecord struct {
	ID          int      `json:"id" yaml:"id"`
	Preferences []string `json:"preferences" yaml:"preferences"`
}

// seminarRecord is the JSON/YAML shape of one seminar.
type seminarRecord struct {
	ID            string  `json:"id" yaml:"id"`
	MinSize       int     `json:"min_size" yaml:"min_size"`
	MaxSize       int     `json:"max_size" yaml:"max_size"`
	Magnification float64 `json:"magnification" yaml:"magnification"`
}

// LoadStudents reads students from path, dispatching on extension
// (.csv, .json, .yaml, .yml).
func LoadStudents(path string) ([]assign.Student, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening students file").WithComponent("loader")
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readStudentsCSV(f)
	case ".json", ".yaml", ".yml":
		var records []studentRecord
		if err := decodeDocument(f, ext, &records); err != nil {
			return nil, errors.Wrap(err, "decoding students").WithComponent("loader")
		}
		students := make([]assign.Student, len(records))
		for i, r := range records {
			students[i] = assign.Student{ID: r.ID, Preferences: r.Preferences}
		}
		return students, nil
	default:
		return nil, errors.Errorf("unsupported students format %q", ext).WithComponent("loader")
	}
}

// LoadSeminars reads seminars from path, dispatching on extension.
func LoadSeminars(path string) ([]assign.Seminar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening seminars file").WithComponent("loader")
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readSeminarsCSV(f)
	case ".json", ".yaml", ".yml":
		var records []seminarRecord
		if err := decodeDocument(f, ext, &records); err != nil {
			return nil, errors.Wrap(err, "decoding seminars").WithComponent("loader")
		}
		seminars := make([]assign.Seminar, len(records))
		for i, r := range records {
			seminars[i] = assign.Seminar{
				ID:            r.ID,
				MinSize:       r.MinSize,
				MaxSize:       r.MaxSize,
				Magnification: r.Magnification,
			}
		}
		return seminars, nil
	default:
		return nil, errors.Errorf("unsupported seminars format %q", ext).WithComponent("loader")
	}
}

// readStudentsCSV parses rows of
//
//	student_id,preference1,preference2,preference3
//
// where trailing preference cells may be empty.
func readStudentsCSV(r io.Reader) ([]assign.Student, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading students csv").WithComponent("loader")
	}
	if len(rows) == 0 {
		return nil, errors.New("students csv is empty").WithComponent("loader")
	}

	students := make([]assign.Student, 0, len(rows)-1)
	for n, row := range rows {
		if n == 0 && !isInt(row[0]) {
			continue // header
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, errors.Wrapf(err, "students csv row %d: bad student id %q", n+1, row[0]).WithComponent("loader")
		}
		st := assign.Student{ID: id}
		for _, cell := range row[1:] {
			if cell = strings.TrimSpace(cell); cell != "" {
				st.Preferences = append(st.Preferences, cell)
			}
		}
		students = append(students, st)
	}
	return students, nil
}

// readSeminarsCSV parses rows of
//
//	seminar_id,min_size,max_size[,magnification]
func readSeminarsCSV(r io.Reader) ([]assign.Seminar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading seminars csv").WithComponent("loader")
	}
	if len(rows) == 0 {
		return nil, errors.New("seminars csv is empty").WithComponent("loader")
	}

	seminars := make([]assign.Seminar, 0, len(rows)-1)
	for n, row := range rows {
		if n == 0 && len(row) > 1 && !isInt(row[1]) {
			continue // header
		}
		if len(row) < 3 {
			return nil, errors.Errorf("seminars csv row %d: want at least 3 columns, got %d", n+1, len(row)).WithComponent("loader")
		}
		min, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, errors.Wrapf(err, "seminars csv row %d: bad min_size %q", n+1, row[1]).WithComponent("loader")
		}
		max, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, errors.Wrapf(err, "seminars csv row %d: bad max_size %q", n+1, row[2]).WithComponent("loader")
		}
		sem := assign.Seminar{ID: strings.TrimSpace(row[0]), MinSize: min, MaxSize: max}
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			mag, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "seminars csv row %d: bad magnification %q", n+1, row[3]).WithComponent("loader")
			}
			sem.Magnification = mag
		}
		seminars = append(seminars, sem)
	}
	return seminars, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

func decodeDocument(r io.Reader, ext string, out interface{}) error {
	switch ext {
	case ".json":
		return json.NewDecoder(r).Decode(out)
	case ".yaml", ".yml":
		return yaml.NewDecoder(r).Decode(out)
	default:
		return fmt.Errorf("unsupported format %q", ext)
	}
}

// Validate cross-checks the loaded records: every preference must
// name a loaded seminar. Structural validation (capacities, duplicate
// ids) happens again when the problem is compiled; this surfaces file
// mismatches with file-level context.
func Validate(seminars []assign.Seminar, students []assign.Student) error {
	known := make(map[string]struct{}, len(seminars))
	for _, s := range seminars {
		known[s.ID] = struct{}{}
	}
	for _, st := range students {
		for _, id := range st.Preferences {
			if _, ok := known[id]; !ok {
				return errors.Errorf("student %d prefers unknown seminar %q", st.ID, id).
					WithOperation("validate").WithComponent("loader")
			}
		}
	}
	return nil
}
