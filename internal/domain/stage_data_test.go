package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateStageFields(t *testing.T) {
	tests := []struct {
		name    string
		stage   int
		fields  StageFields
		wantErr bool
	}{
		{name: "stage 1 bank only", stage: 1, fields: StageFields{FieldBankName: "SNB"}},
		{
			name:  "stage 1 full application",
			stage: 1,
			fields: StageFields{
				FieldBankName:       "SNB",
				FieldClientSalary:   "12000.75",
				FieldEmploymentType: string(EmploymentMilitary),
				FieldNotes:          "salary certificate attached",
			},
		},
		{name: "stage 1 without bank", stage: 1, fields: StageFields{FieldNotes: "x"}, wantErr: true},
		{name: "stage 1 malformed salary", stage: 1, fields: StageFields{FieldBankName: "SNB", FieldClientSalary: "12k"}, wantErr: true},
		{name: "stage 1 unknown employment", stage: 1, fields: StageFields{FieldBankName: "SNB", FieldEmploymentType: "student"}, wantErr: true},
		{name: "stage 2 empty", stage: 2},
		{name: "stage 2 notes", stage: 2, fields: StageFields{FieldNotes: "documents verified"}},
		{name: "stage 3 rejects bank name", stage: 3, fields: StageFields{FieldBankName: "SNB"}, wantErr: true},
		{name: "stage 4 appraiser", stage: 4, fields: StageFields{FieldAppraiserName: "Valu"}},
		{name: "stage 4 without appraiser", stage: 4, wantErr: true},
		{name: "stage 5 rejects appraiser", stage: 5, fields: StageFields{FieldAppraiserName: "Valu"}, wantErr: true},
		{name: "stage out of range", stage: 7, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStageFields(tt.stage, tt.fields)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStageInput_Fields(t *testing.T) {
	salary := decimal.NewFromInt(9000)
	in := StageInput{
		BankName:       "  ",
		ClientSalary:   &salary,
		EmploymentType: EmploymentPrivate,
		AppraiserName:  " Valu ",
	}

	assert.Equal(t, StageFields{
		FieldClientSalary:   "9000",
		FieldEmploymentType: "private",
		FieldAppraiserName:  "Valu",
	}, in.Fields())
	assert.Empty(t, StageInput{}.Fields())
}
