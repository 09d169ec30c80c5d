// Package listmaker keeps named tables that anyone can read and only their
// author can change.
package listmaker

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/intrntsrfr/cogs/guild"
	"github.com/intrntsrfr/cogs/kvstore"
)

var (
	ErrNotOwner       = errors.New("not the owner of the list")
	ErrColumnMismatch = errors.New("wrong number of values")
	ErrBadRow         = errors.New("no such row")
)

type List struct {
	Author  string
	Columns []string
	Rows    [][]string
}

// Summary names a list and its author.
type Summary struct {
	Name   string
	Author string
}

type catalog struct {
	Lists map[string]List
}

type Service struct {
	store  kvstore.Store
	logger *zap.Logger
}

func NewService(store kvstore.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

var catalogKey = kvstore.GlobalKey("listmaker")

func (s *Service) Create(name, authorID string, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("%w: a list needs at least one column", ErrColumnMismatch)
	}
	return kvstore.Mutate(s.store, catalogKey, func(c *catalog) error {
		if _, ok := c.Lists[name]; ok {
			return fmt.Errorf("%w: list %v", guild.ErrAlreadyExists, name)
		}
		if c.Lists == nil {
			c.Lists = make(map[string]List)
		}
		c.Lists[name] = List{Author: authorID, Columns: columns}
		return nil
	})
}

func (s *Service) AddRow(name, authorID string, values []string) error {
	return s.update(name, authorID, func(l *List) error {
		if len(values) != len(l.Columns) {
			return fmt.Errorf("%w: got %v, list has %v columns", ErrColumnMismatch, len(values), len(l.Columns))
		}
		l.Rows = append(l.Rows, values)
		return nil
	})
}

// RemoveRow removes a row by its 1-based number.
func (s *Service) RemoveRow(name, authorID string, row int) error {
	return s.update(name, authorID, func(l *List) error {
		if row < 1 || row > len(l.Rows) {
			return fmt.Errorf("%w: %v", ErrBadRow, row)
		}
		l.Rows = append(l.Rows[:row-1], l.Rows[row:]...)
		return nil
	})
}

func (s *Service) Delete(name, authorID string) error {
	return kvstore.Mutate(s.store, catalogKey, func(c *catalog) error {
		l, ok := c.Lists[name]
		if !ok {
			return fmt.Errorf("%w: list %v", guild.ErrNotFound, name)
		}
		if l.Author != authorID {
			return ErrNotOwner
		}
		delete(c.Lists, name)
		return nil
	})
}

func (s *Service) update(name, authorID string, fn func(*List) error) error {
	return kvstore.Mutate(s.store, catalogKey, func(c *catalog) error {
		l, ok := c.Lists[name]
		if !ok {
			return fmt.Errorf("%w: list %v", guild.ErrNotFound, name)
		}
		if l.Author != authorID {
			return ErrNotOwner
		}
		if err := fn(&l); err != nil {
			return err
		}
		c.Lists[name] = l
		return nil
	})
}

func (s *Service) Get(name string) (List, error) {
	c, err := kvstore.Load[catalog](s.store, catalogKey)
	if err != nil {
		return List{}, err
	}
	l, ok := c.Lists[name]
	if !ok {
		return List{}, fmt.Errorf("%w: list %v", guild.ErrNotFound, name)
	}
	return l, nil
}

// Show renders a list as an aligned table with numbered rows.
func (s *Service) Show(name string) (string, error) {
	l, err := s.Get(name)
	if err != nil {
		return "", err
	}
	rows := make([][]string, len(l.Rows))
	for i, r := range l.Rows {
		rows[i] = append([]string{strconv.Itoa(i + 1)}, r...)
	}
	return Table(append([]string{"#"}, l.Columns...), rows), nil
}

// Lists returns every list sorted by name.
func (s *Service) Lists() ([]Summary, error) {
	c, err := kvstore.Load[catalog](s.store, catalogKey)
	if err != nil {
		return nil, err
	}
	lists := make([]Summary, 0, len(c.Lists))
	for name, l := range c.Lists {
		lists = append(lists, Summary{Name: name, Author: l.Author})
	}
	sort.Slice(lists, func(i, j int) bool {
		return lists[i].Name < lists[j].Name
	})
	return lists, nil
}

// Table lays out rows under headers in aligned columns, with a rule below
// the headers.
func Table(headers []string, rows [][]string) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	rule := make([]string, len(headers))
	for i, h := range headers {
		width := len([]rune(h))
		for _, r := range rows {
			if i < len(r) {
				width = max(width, len([]rune(r[i])))
			}
		}
		rule[i] = strings.Repeat("-", width)
	}
	writeRow(w, headers)
	writeRow(w, rule)
	for _, r := range rows {
		writeRow(w, r)
	}
	_ = w.Flush()
	return sb.String()
}

func writeRow(w *tabwriter.Writer, cells []string) {
	clean := make([]string, len(cells))
	for i, c := range cells {
		clean[i] = strings.NewReplacer("\t", " ", "\n", " ").Replace(c)
	}
	fmt.Fprintln(w, strings.Join(clean, "\t"))
}

// SplitValues splits space separated values. Values containing spaces are
// wrapped in double quotes.
func SplitValues(s string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(s)))
	r.Comma = ' '
	r.TrimLeadingSpace = true
	values, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}
