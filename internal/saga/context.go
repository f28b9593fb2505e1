package saga

// Context is the string-keyed mutable state shared by all steps of one saga
// run. Earlier steps write values that later steps and the result aggregator
// read. A Context is exclusively owned by a single run and is not safe for
// concurrent use; it is discarded when the run completes.
type Context struct {
	values map[string]any
}

// NewContext constructs an empty run context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Set stores a value under key, replacing any previous value.
func (c *Context) Set(key string, value any) {
	c.values[key] = value
}

// Get returns the raw value for key and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the string stored under key, or "" if absent or mistyped.
func (c *Context) String(key string) string {
	v, _ := c.values[key].(string)
	return v
}

// Int returns the int stored under key, or 0 if absent or mistyped.
func (c *Context) Int(key string) int {
	v, _ := c.values[key].(int)
	return v
}

// Float returns the float64 stored under key, or 0 if absent or mistyped.
func (c *Context) Float(key string) float64 {
	v, _ := c.values[key].(float64)
	return v
}
