// Package policy holds the authorization rules for question banks as pure
// functions over the capabilities a user holds in a context.
package policy

import (
	"sort"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

type Capability string

const (
	ManageAssignments Capability = "manage_assignments"
	ReadQuestionBanks Capability = "read_question_banks"
	ManageFiles       Capability = "manage_files"
	CreatePages       Capability = "create_pages"
	ReadCourse        Capability = "read"
)

type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func (s CapabilitySet) Add(caps ...Capability) {
	for _, c := range caps {
		s[c] = struct{}{}
	}
}

// Union returns a new set; neither operand is modified.
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	out := make(CapabilitySet, len(s)+len(other))
	for c := range s {
		out[c] = struct{}{}
	}
	for c := range other {
		out[c] = struct{}{}
	}
	return out
}

func (s CapabilitySet) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleCapabilities is the grant table for membership roles.
var RoleCapabilities = map[models.MembershipRole][]Capability{
	models.MembershipAccountAdmin: {ManageAssignments, ReadQuestionBanks, ManageFiles, CreatePages, ReadCourse},
	models.MembershipTeacher:      {ManageAssignments, ReadQuestionBanks, ManageFiles, CreatePages, ReadCourse},
	models.MembershipDesigner:     {ManageAssignments, ReadQuestionBanks, ManageFiles, CreatePages, ReadCourse},
	models.MembershipTA:           {ReadQuestionBanks, ManageFiles, ReadCourse},
	models.MembershipStudent:      {ReadCourse},
	models.MembershipObserver:     {ReadCourse},
}

// CapabilitiesFor folds the grants of every given role into one set.
func CapabilitiesFor(roles ...models.MembershipRole) CapabilitySet {
	set := NewCapabilitySet()
	for _, role := range roles {
		set.Add(RoleCapabilities[role]...)
	}
	return set
}

// InheritsDownward reports whether a role held on an account applies to the
// courses and sub-accounts beneath it.
func InheritsDownward(role models.MembershipRole) bool {
	return role == models.MembershipAccountAdmin
}
