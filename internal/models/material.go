package models

import (
	"regexp"
	"strings"
)

// MediaType enumerates the attachment kinds a material can carry.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaPDF   MediaType = "pdf"
	MediaVideo MediaType = "video"
	MediaNone  MediaType = "none"
)

// Question is a reflection prompt.
type Question struct {
	ID   string `json:"id" mapstructure:"id"`
	Text string `json:"text" mapstructure:"text"`
}

// Task is an assignment attached to a material.
type Task struct {
	ID          string `json:"id" mapstructure:"id"`
	Description string `json:"description" mapstructure:"description"`
}

// Material is a reading assigned to a class grade.
type Material struct {
	ID         string     `json:"id" mapstructure:"id"`
	Title      string     `json:"title" mapstructure:"title" validate:"required"`
	ClassGrade string     `json:"classGrade" mapstructure:"classGrade" validate:"required"`
	MediaType  MediaType  `json:"mediaType" mapstructure:"mediaType"`
	MediaURL   string     `json:"mediaUrl" mapstructure:"mediaUrl"`
	Questions  []Question `json:"questions" mapstructure:"questions"`
	Tasks      []Task     `json:"tasks" mapstructure:"tasks"`
}

// MaterialView adds the embeddable media URL to a material.
type MaterialView struct {
	Material
	EmbedURL string `json:"embedUrl,omitempty"`
}

// MaterialFilter narrows material listings.
type MaterialFilter struct {
	ClassGrade string
}

var driveViewPattern = regexp.MustCompile(`/view.*`)

// EmbedURL rewrites share links into their embeddable form.
func (m Material) EmbedURL() string {
	url := strings.TrimSpace(m.MediaURL)
	if url == "" || m.MediaType == MediaNone {
		return ""
	}
	if strings.Contains(url, "drive.google.com") && strings.Contains(url, "/view") {
		return driveViewPattern.ReplaceAllString(url, "/preview")
	}
	if strings.Contains(url, "youtu") {
		url = strings.Replace(url, "watch?v=", "embed/", 1)
		return strings.Replace(url, "youtu.be/", "www.youtube.com/embed/", 1)
	}
	return url
}

// View returns the API projection of m.
func (m Material) View() MaterialView {
	return MaterialView{Material: m, EmbedURL: m.EmbedURL()}
}
