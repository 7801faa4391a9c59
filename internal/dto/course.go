package dto

import "github.com/noah-isme/lms-api/internal/models"

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description" validate:"required"`
	Duration    int                `json:"duration" validate:"gte=0"`
	Price       float64            `json:"price" validate:"gte=0"`
	Category    string             `json:"category" validate:"required,max=100"`
	Level       models.CourseLevel `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Thumbnail   string             `json:"thumbnail" validate:"omitempty,url"`
	Published   bool               `json:"published"`
}

// UpdateCourseRequest holds optional course changes.
type UpdateCourseRequest struct {
	Title       *string             `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string             `json:"description"`
	Duration    *int                `json:"duration" validate:"omitempty,gte=0"`
	Price       *float64            `json:"price" validate:"omitempty,gte=0"`
	Category    *string             `json:"category" validate:"omitempty,max=100"`
	Level       *models.CourseLevel `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Thumbnail   *string             `json:"thumbnail" validate:"omitempty,url"`
	Published   *bool               `json:"published"`
}

// CreateLectureRequest is the payload for adding a lecture to a course.
type CreateLectureRequest struct {
	Title       string                    `json:"title" validate:"required,max=200"`
	Content     string                    `json:"content" validate:"required"`
	ContentType models.LectureContentType `json:"content_type" validate:"omitempty,oneof=video text pdf quiz"`
	Position    *int                      `json:"position" validate:"omitempty,gte=0"`
	Duration    int                       `json:"duration" validate:"gte=0"`
}

// UpdateLectureRequest holds optional lecture changes.
type UpdateLectureRequest struct {
	Title       *string                    `json:"title" validate:"omitempty,min=1,max=200"`
	Content     *string                    `json:"content"`
	ContentType *models.LectureContentType `json:"content_type" validate:"omitempty,oneof=video text pdf quiz"`
	Position    *int                       `json:"position" validate:"omitempty,gte=0"`
	Duration    *int                       `json:"duration" validate:"omitempty,gte=0"`
}
