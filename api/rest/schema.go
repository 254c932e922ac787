package rest

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Command schema names.
const (
	schemaEquip         = "equip"
	schemaUnequip       = "unequip"
	schemaTransfer      = "transfer"
	schemaCoins         = "coins"
	schemaTradeInitiate = "trade_initiate"
	schemaTradeRespond  = "trade_respond"
	schemaSession       = "session"
)

const maxCommandBytes = 64 << 10

// Validator checks command bodies against the embedded JSON schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every embedded command schema.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	names := []string{schemaEquip, schemaUnequip, schemaTransfer, schemaCoins, schemaTradeInitiate, schemaTradeRespond, schemaSession}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		file := "schemas/" + name + ".schema.json"
		raw, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		if err := c.AddResource(file, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		s, err := c.Compile(file)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// Check validates raw against the named schema.
func (v *Validator) Check(name string, raw []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown command schema %q", name)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// bindCommand reads the request body, validates it against the named schema
// and decodes it into dst. It writes a 400 and returns false on failure. An
// empty body is treated as an empty object.
func bindCommand(c *gin.Context, v *Validator, name string, dst any) bool {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if err := v.Check(name, raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid command", "detail": err.Error()})
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid command", "detail": err.Error()})
		return false
	}
	return true
}
