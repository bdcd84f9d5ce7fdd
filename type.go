// File: confschema/type.go
package confschema

import (
	"fmt"
	"math"
)

// typed fetches the value at path and asserts its native type.
func typed[T any](c *Config, path string) (T, error) {
	var zero T
	val, found := c.values[path]
	if !found {
		return zero, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	v, ok := val.(T)
	if !ok {
		e, _ := c.schema.Entry(path)
		return zero, fmt.Errorf("value for path %s is %s, not %T", path, e.expected(), zero)
	}
	return v, nil
}

// Bool retrieves a boolean configuration value using the path.
func (c *Config) Bool(path string) (bool, error) {
	return typed[bool](c, path)
}

// Int64 retrieves an integer configuration value using the path.
func (c *Config) Int64(path string) (int64, error) {
	return typed[int64](c, path)
}

// Int retrieves an integer configuration value as int, failing when it does
// not fit the platform int.
func (c *Config) Int(path string) (int, error) {
	v, err := c.Int64(path)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt || v < math.MinInt {
		return 0, fmt.Errorf("value %d for path %s overflows int", v, path)
	}
	return int(v), nil
}

// Float64 retrieves a float configuration value using the path.
func (c *Config) Float64(path string) (float64, error) {
	return typed[float64](c, path)
}

// String retrieves a string, path or choice configuration value using the path.
func (c *Config) String(path string) (string, error) {
	return typed[string](c, path)
}

// Strings retrieves a list of strings, paths or choices.
func (c *Config) Strings(path string) ([]string, error) {
	v, err := typed[[]string](c, path)
	return append([]string(nil), v...), err
}

// Int64s retrieves a list of integers.
func (c *Config) Int64s(path string) ([]int64, error) {
	v, err := typed[[]int64](c, path)
	return append([]int64(nil), v...), err
}

// Float64s retrieves a list of floats.
func (c *Config) Float64s(path string) ([]float64, error) {
	v, err := typed[[]float64](c, path)
	return append([]float64(nil), v...), err
}

// Bools retrieves a list of booleans.
func (c *Config) Bools(path string) ([]bool, error) {
	v, err := typed[[]bool](c, path)
	return append([]bool(nil), v...), err
}
