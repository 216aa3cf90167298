package service

import (
	"strings"
	"unicode/utf8"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

const (
	titleMin, titleMax             = 3, 120
	annotationMin, annotationMax   = 20, 2000
	descriptionMin, descriptionMax = 20, 7000
)

func checkText(field, v string, min, max int) error {
	if strings.TrimSpace(v) == "" {
		return model.Errorf(model.KindValidation, "%s is required", field)
	}
	n := utf8.RuneCountInString(v)
	if n < min || n > max {
		return model.Errorf(model.KindValidation, "%s must be %d to %d characters long", field, min, max)
	}
	return nil
}

func checkLimit(limit int) error {
	if limit < 0 {
		return model.Errorf(model.KindValidation, "participant limit must not be negative")
	}
	return nil
}

func validateNewEvent(in model.NewEvent) error {
	if err := checkText("title", in.Title, titleMin, titleMax); err != nil {
		return err
	}
	if err := checkText("annotation", in.Annotation, annotationMin, annotationMax); err != nil {
		return err
	}
	if err := checkText("description", in.Description, descriptionMin, descriptionMax); err != nil {
		return err
	}
	if in.CategoryID <= 0 {
		return model.Errorf(model.KindValidation, "category is required")
	}
	if in.EventDate.IsZero() {
		return model.Errorf(model.KindValidation, "event date is required")
	}
	return checkLimit(in.ParticipantLimit)
}

func validateUpdate(u model.EventUpdate) error {
	if u.Title != nil {
		if err := checkText("title", *u.Title, titleMin, titleMax); err != nil {
			return err
		}
	}
	if u.Annotation != nil {
		if err := checkText("annotation", *u.Annotation, annotationMin, annotationMax); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if err := checkText("description", *u.Description, descriptionMin, descriptionMax); err != nil {
			return err
		}
	}
	if u.ParticipantLimit != nil {
		return checkLimit(*u.ParticipantLimit)
	}
	return nil
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
