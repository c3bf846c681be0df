package models

// Answer is a student's response to one reflection question.
type Answer struct {
	QuestionID string `json:"questionId" mapstructure:"questionId"`
	Answer     string `json:"answer" mapstructure:"answer"`
}

// Submission is a student's reflection on one material.
type Submission struct {
	ID           string   `json:"id" mapstructure:"id"`
	MaterialID   string   `json:"materialId" mapstructure:"materialId"`
	StudentNISN  string   `json:"studentNisn" mapstructure:"studentNisn"`
	StudentName  string   `json:"studentName" mapstructure:"studentName"`
	ClassGrade   string   `json:"classGrade" mapstructure:"classGrade"`
	Answers      []Answer `json:"answers" mapstructure:"answers"`
	TaskText     string   `json:"taskText" mapstructure:"taskText"`
	TaskFileURL  string   `json:"taskFileUrl" mapstructure:"taskFileUrl"`
	IsApproved   bool     `json:"isApproved" mapstructure:"isApproved"`
	TeacherNotes string   `json:"teacherNotes" mapstructure:"teacherNotes"`
	SubmittedAt  string   `json:"submittedAt" mapstructure:"submittedAt"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	ClassGrade  string
	StudentNISN string
	MaterialID  string
}

// SubmitRequest is a student's answer sheet for a material, keyed by question id.
type SubmitRequest struct {
	Answers     map[string]string `json:"answers"`
	TaskText    string            `json:"taskText"`
	TaskFileURL string            `json:"taskFileUrl"`
}

// ReviewRequest records a teacher's decision on a submission.
type ReviewRequest struct {
	Approved     bool   `json:"approved"`
	TeacherNotes string `json:"teacherNotes"`
}

// RecapRow is one line of the submissions recap export.
type RecapRow struct {
	StudentName   string
	StudentNISN   string
	ClassGrade    string
	MaterialTitle string
	Status        string
	SubmittedAt   string
	TeacherNotes  string
}
