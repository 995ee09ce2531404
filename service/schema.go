package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janpow77/flowinvoice-sub001/model"
)

// documentSchema is the shape GET /documents/{id} must have before it is
// decoded into model.Document
const documentSchema = `{
  "type": "object",
  "required": ["id", "status"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "filename": {"type": "string"},
    "uploaded_at": {"type": "string", "format": "date-time"},
    "status": {"enum": ["UPLOADED", "PARSING", "VALIDATING", "VALIDATED", "ANALYZING", "ANALYZED", "REVIEWED", "EXPORTED", "ERROR"]},
    "extracted_data": {
      "type": ["object", "null"],
      "additionalProperties": {
        "type": "object",
        "properties": {
          "value": {"type": ["string", "number", "null"]},
          "confidence": {"type": ["number", "null"]}
        }
      }
    },
    "precheck_errors": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["feature_id", "severity"],
        "properties": {
          "feature_id": {"type": "string"},
          "message": {"type": "string"},
          "severity": {"enum": ["HIGH", "MEDIUM", "LOW"]}
        }
      }
    },
    "analysis_result": {
      "oneOf": [
        {"type": "null"},
        {
          "type": "object",
          "required": ["overall_assessment"],
          "properties": {
            "id": {"type": "string"},
            "overall_assessment": {"enum": ["ok", "review_needed", "rejected"]},
            "confidence": {"type": "number", "minimum": 0, "maximum": 1},
            "provider": {"type": "string"},
            "conflicts": {"type": ["array", "null"]},
            "warnings": {"type": ["array", "null"], "items": {"type": "string"}}
          }
        }
      ]
    },
    "feedback": {"type": ["object", "null"]}
  }
}`

// DocumentDecoder validates raw API payloads against documentSchema and
// decodes them into typed documents.
type DocumentDecoder struct {
	schema *jsonschema.Schema
}

func NewDocumentDecoder() (*DocumentDecoder, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("document.json", strings.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("failed to load document schema: %w", err)
	}
	schema, err := compiler.Compile("document.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile document schema: %w", err)
	}
	return &DocumentDecoder{schema: schema}, nil
}

// Decode validates and decodes one document
func (d *DocumentDecoder) Decode(data []byte) (*model.Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := d.schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &doc, nil
}

// DecodeList decodes {"documents": [...]}, validating each entry
func (d *DocumentDecoder) DecodeList(data []byte) ([]*model.Document, error) {
	var envelope struct {
		Documents []json.RawMessage `json:"documents"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	docs := make([]*model.Document, 0, len(envelope.Documents))
	for i, item := range envelope.Documents {
		doc, err := d.Decode(item)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
