package models

// Student is a learner row keyed by NISN (national student number).
type Student struct {
	NISN       string `json:"nisn" mapstructure:"nisn" validate:"required"`
	Name       string `json:"name" mapstructure:"name" validate:"required"`
	ClassGrade string `json:"classGrade" mapstructure:"classGrade"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	ClassGrade string
}

// BulkStudentsRequest imports many students at once.
type BulkStudentsRequest struct {
	Students []Student `json:"students" mapstructure:"students" validate:"required,min=1,dive"`
}
