package handler

import (
	"strings"

	dErrors "warden/pkg/domain-errors"
)

// ChallengeRequest is the HTTP request body for POST /verify/request.
type ChallengeRequest struct {
	SubjectID string `json:"subject_id"`
	RealmID   string `json:"realm_id"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ChallengeRequest) Validate() error {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.RealmID = strings.TrimSpace(r.RealmID)
	return validateIDPair(r.SubjectID, r.RealmID)
}

// SubmitRequest is the HTTP request body for POST /verify/submit.
type SubmitRequest struct {
	SubjectID string `json:"subject_id"`
	RealmID   string `json:"realm_id"`
	Answer    string `json:"answer"`
}

func (r *SubmitRequest) Validate() error {
	r.SubjectID = strings.TrimSpace(r.SubjectID)
	r.RealmID = strings.TrimSpace(r.RealmID)
	if err := validateIDPair(r.SubjectID, r.RealmID); err != nil {
		return err
	}
	if r.Answer == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "answer is required")
	}
	return nil
}

// AffordanceRequest is the HTTP request body for POST /admin/affordances.
type AffordanceRequest struct {
	MessageRef string `json:"message_ref"`
	ChannelRef string `json:"channel_ref"`
	RealmID    string `json:"realm_id"`
}

func (r *AffordanceRequest) Validate() error {
	r.MessageRef = strings.TrimSpace(r.MessageRef)
	r.ChannelRef = strings.TrimSpace(r.ChannelRef)
	r.RealmID = strings.TrimSpace(r.RealmID)

	if r.MessageRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "message_ref is required")
	}
	if r.ChannelRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "channel_ref is required")
	}
	if r.RealmID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "realm_id is required")
	}
	return nil
}

func validateIDPair(subjectID, realmID string) error {
	if subjectID == "" || len(subjectID) > 64 {
		return dErrors.New(dErrors.CodeInvalidInput, "subject_id must be 1-64 characters")
	}
	if realmID == "" || len(realmID) > 64 {
		return dErrors.New(dErrors.CodeInvalidInput, "realm_id must be 1-64 characters")
	}
	return nil
}
