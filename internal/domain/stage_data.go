package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"
)

// Keys of captured stage attributes
const (
	FieldBankName       = "bank_name"
	FieldClientSalary   = "client_salary"
	FieldEmploymentType = "employment_type"
	FieldAppraiserName  = "appraiser_name"
	FieldNotes          = "notes"
)

// EmploymentType classifies the client's employer for the bank application
type EmploymentType string

const (
	EmploymentGovernment   EmploymentType = "government"
	EmploymentPrivate      EmploymentType = "private"
	EmploymentMilitary     EmploymentType = "military"
	EmploymentRetired      EmploymentType = "retired"
	EmploymentSelfEmployed EmploymentType = "self_employed"
)

// StageFields holds the attributes captured when a stage was completed
type StageFields map[string]string

// StageInput is the data submitted together with a stage completion.
// Only the fields allowed by the stage's schema may be set.
type StageInput struct {
	BankName       string
	ClientSalary   *decimal.Decimal
	EmploymentType EmploymentType
	AppraiserName  string
	Notes          string
}

// Fields flattens the non-empty input values into StageFields
func (in StageInput) Fields() StageFields {
	f := StageFields{}
	if s := strings.TrimSpace(in.BankName); s != "" {
		f[FieldBankName] = s
	}
	if in.ClientSalary != nil {
		f[FieldClientSalary] = in.ClientSalary.String()
	}
	if in.EmploymentType != "" {
		f[FieldEmploymentType] = string(in.EmploymentType)
	}
	if s := strings.TrimSpace(in.AppraiserName); s != "" {
		f[FieldAppraiserName] = s
	}
	if s := strings.TrimSpace(in.Notes); s != "" {
		f[FieldNotes] = s
	}
	return f
}

var notesProperty = map[string]interface{}{"type": "string", "maxLength": 2000}

// stageSchemaDefs are the JSON schemas each stage's captured data must satisfy
var stageSchemaDefs = [StageCount]map[string]interface{}{
	{
		"type": "object",
		"properties": map[string]interface{}{
			FieldBankName:     map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 255},
			FieldClientSalary: map[string]interface{}{"type": "string", "pattern": `^[0-9]+(\.[0-9]{1,2})?$`},
			FieldEmploymentType: map[string]interface{}{
				"type": "string",
				"enum": []interface{}{
					string(EmploymentGovernment),
					string(EmploymentPrivate),
					string(EmploymentMilitary),
					string(EmploymentRetired),
					string(EmploymentSelfEmployed),
				},
			},
			FieldNotes: notesProperty,
		},
		"required":             []interface{}{FieldBankName},
		"additionalProperties": false,
	},
	{
		"type":                 "object",
		"properties":           map[string]interface{}{FieldNotes: notesProperty},
		"additionalProperties": false,
	},
	{
		"type":                 "object",
		"properties":           map[string]interface{}{FieldNotes: notesProperty},
		"additionalProperties": false,
	},
	{
		"type": "object",
		"properties": map[string]interface{}{
			FieldAppraiserName: map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 255},
			FieldNotes:         notesProperty,
		},
		"required":             []interface{}{FieldAppraiserName},
		"additionalProperties": false,
	},
	{
		"type":                 "object",
		"properties":           map[string]interface{}{FieldNotes: notesProperty},
		"additionalProperties": false,
	},
}

var stageSchemas = compileStageSchemas()

func compileStageSchemas() [StageCount]*gojsonschema.Schema {
	var out [StageCount]*gojsonschema.Schema
	for i, def := range stageSchemaDefs {
		s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
		if err != nil {
			panic(fmt.Sprintf("stage %d schema: %v", i+1, err))
		}
		out[i] = s
	}
	return out
}

// ValidateStageFields checks captured data against the stage's schema
func ValidateStageFields(stage int, fields StageFields) error {
	if stage < 1 || stage > StageCount {
		return NewError(ErrCodeInvalidInput, "stage %d is outside 1..%d", stage, StageCount)
	}

	doc := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		doc[k] = v
	}

	result, err := stageSchemas[stage-1].Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate stage %d data: %w", stage, err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return &Error{
			Code:    ErrCodeInvalidInput,
			Message: fmt.Sprintf("stage %d data failed validation", stage),
			Details: strings.Join(msgs, "; "),
		}
	}
	return nil
}
