// Package catalog holds the institution-specific data the marks server
// validates against: the subject list, the TA roster, the branch code table
// and the course-total conversion factor.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Ratio is a scaling factor kept as a fraction so 2/3 stays exact in config.
type Ratio struct {
	Numerator   float64 `mapstructure:"numerator" json:"numerator"`
	Denominator float64 `mapstructure:"denominator" json:"denominator"`
}

// Apply scales x by the ratio.
func (r Ratio) Apply(x float64) float64 {
	return x * r.Numerator / r.Denominator
}

// Catalog is immutable after Load/Default.
type Catalog struct {
	Subjects    []string          `mapstructure:"subjects" json:"subjects"`
	TAs         []string          `mapstructure:"tas" json:"tas"`
	Branches    map[string]string `mapstructure:"branches" json:"branches"`
	CourseTotal Ratio             `mapstructure:"course_total" json:"courseTotal"`

	subjectSet map[string]struct{}
	taSet      map[string]struct{}
}

var branchCodePattern = regexp.MustCompile(`^\d{3}$`)

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{
		Subjects: []string{"Political Science", "History", "Economics", "Sociology", "Philosophy"},
		TAs: []string{
			"Aadi", "Akshit", "Anushka", "Asirith", "Chandana",
			"Chetan", "Gargie", "Kriti", "Medha", "Rohan",
			"Rushil", "Sathvika", "Sreenivas", "Tanish", "Tanveer",
		},
		Branches: map[string]string{
			"111": "CSD",
			"101": "CSE",
			"102": "ECE",
			"112": "ECD",
			"113": "CND",
			"114": "CLD",
		},
		CourseTotal: Ratio{Numerator: 2, Denominator: 3},
	}
	c.index()
	return c
}

// Load reads a catalog file through viper. An empty path searches the usual
// config directories and falls back to Default when nothing is found.
// Values can be overridden with CATALOG_* environment variables.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("subjects", def.Subjects)
	v.SetDefault("tas", def.TAs)
	v.SetDefault("course_total.numerator", def.CourseTotal.Numerator)
	v.SetDefault("course_total.denominator", def.CourseTotal.Denominator)

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
	} else {
		v.SetConfigName("catalog")
		v.SetConfigType("yaml")
		v.AddConfigPath("/configs")
		v.AddConfigPath("./configs")
		v.AddConfigPath("./backend/configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read catalog: %w", err)
			}
		}
	}

	// Map defaults are merged key by key by viper, so only apply the built-in
	// branch table when the file does not define one.
	if !v.IsSet("branches") {
		v.SetDefault("branches", def.Branches)
	}

	var c Catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.index()
	return &c, nil
}

// Validate checks the catalog is usable.
func (c *Catalog) Validate() error {
	if len(c.Subjects) == 0 {
		return errors.New("catalog: at least one subject is required")
	}
	if len(c.TAs) == 0 {
		return errors.New("catalog: at least one TA is required")
	}
	if err := checkUnique("subject", c.Subjects); err != nil {
		return err
	}
	if err := checkUnique("TA", c.TAs); err != nil {
		return err
	}
	for code, name := range c.Branches {
		if !branchCodePattern.MatchString(code) {
			return fmt.Errorf("catalog: branch code %q must be exactly 3 digits", code)
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("catalog: branch code %q has no name", code)
		}
	}
	if c.CourseTotal.Numerator <= 0 || c.CourseTotal.Denominator <= 0 {
		return errors.New("catalog: course_total numerator and denominator must be positive")
	}
	return nil
}

func checkUnique(kind string, values []string) error {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("catalog: empty %s name", kind)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("catalog: duplicate %s %q", kind, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func (c *Catalog) index() {
	c.subjectSet = make(map[string]struct{}, len(c.Subjects))
	for _, s := range c.Subjects {
		c.subjectSet[s] = struct{}{}
	}
	c.taSet = make(map[string]struct{}, len(c.TAs))
	for _, t := range c.TAs {
		c.taSet[t] = struct{}{}
	}
}

// HasSubject reports whether s is a known subject (exact match).
func (c *Catalog) HasSubject(s string) bool {
	_, ok := c.subjectSet[s]
	return ok
}

// HasTA reports whether name is on the TA roster (exact match).
func (c *Catalog) HasTA(name string) bool {
	_, ok := c.taSet[name]
	return ok
}

// BranchNames returns the distinct branch names, sorted.
func (c *Catalog) BranchNames() []string {
	seen := make(map[string]struct{}, len(c.Branches))
	names := make([]string, 0, len(c.Branches))
	for _, name := range c.Branches {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
