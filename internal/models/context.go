package models

import (
	"fmt"
	"strings"
	"time"
)

type ContextType string

const (
	ContextAccount ContextType = "Account"
	ContextCourse  ContextType = "Course"
)

// ContextRef identifies the account or course that owns a record.
type ContextRef struct {
	Type ContextType `json:"context_type"`
	ID   uint        `json:"context_id"`
}

func AccountRef(id uint) ContextRef { return ContextRef{Type: ContextAccount, ID: id} }
func CourseRef(id uint) ContextRef  { return ContextRef{Type: ContextCourse, ID: id} }

func (r ContextRef) IsAccount() bool { return r.Type == ContextAccount }
func (r ContextRef) IsCourse() bool  { return r.Type == ContextCourse }

func (r ContextRef) Valid() bool {
	return (r.Type == ContextAccount || r.Type == ContextCourse) && r.ID > 0
}

// Code returns the canonical string form, e.g. "course_12".
func (r ContextRef) Code() string {
	return fmt.Sprintf("%s_%d", strings.ToLower(string(r.Type)), r.ID)
}

func (r ContextRef) String() string { return r.Code() }

// ParseContextType accepts both the stored form ("Course") and the URL form ("courses").
func ParseContextType(s string) (ContextType, bool) {
	switch strings.ToLower(s) {
	case "account", "accounts":
		return ContextAccount, true
	case "course", "courses":
		return ContextCourse, true
	default:
		return "", false
	}
}

type Account struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"not null;size:255"`
	ParentAccountID *uint     `json:"parent_account_id" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Course struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"not null;size:255"`
	CourseCode string `json:"course_code" gorm:"size:255"`
	AccountID  uint   `json:"account_id" gorm:"not null;index"`

	UsageRightsRequired bool `json:"usage_rights_required" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Account *Account `json:"account,omitempty" gorm:"foreignKey:AccountID"`
}

// ShortName is what the UI shows in breadcrumbs; falls back to the full name.
func (c *Course) ShortName() string {
	if c.CourseCode != "" {
		return c.CourseCode
	}
	return c.Name
}

// ContextInfo is the resolved owning context of a bank or a token request.
type ContextInfo struct {
	Ref       ContextRef  `json:"ref"`
	Name      string      `json:"name"`
	ShortName string      `json:"short_name"`
	Parent    *ContextRef `json:"parent,omitempty"`

	UsageRightsRequired bool `json:"usage_rights_required"`
}

func (c *Account) Info() *ContextInfo {
	info := &ContextInfo{Ref: AccountRef(c.ID), Name: c.Name, ShortName: c.Name}
	if c.ParentAccountID != nil {
		parent := AccountRef(*c.ParentAccountID)
		info.Parent = &parent
	}
	return info
}

func (c *Course) Info() *ContextInfo {
	parent := AccountRef(c.AccountID)
	return &ContextInfo{
		Ref:                 CourseRef(c.ID),
		Name:                c.Name,
		ShortName:           c.ShortName(),
		Parent:              &parent,
		UsageRightsRequired: c.UsageRightsRequired,
	}
}

type MembershipRole string

const (
	MembershipAccountAdmin MembershipRole = "account_admin"
	MembershipTeacher      MembershipRole = "teacher"
	MembershipTA           MembershipRole = "ta"
	MembershipDesigner     MembershipRole = "designer"
	MembershipStudent      MembershipRole = "student"
	MembershipObserver     MembershipRole = "observer"
)

// ContextMembership grants a user a role inside an account or a course.
type ContextMembership struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      string         `json:"user_id" gorm:"not null;size:255;index:idx_membership_user_context"`
	ContextType ContextType    `json:"context_type" gorm:"not null;size:20;index:idx_membership_user_context"`
	ContextID   uint           `json:"context_id" gorm:"not null;index:idx_membership_user_context"`
	Role        MembershipRole `json:"role" gorm:"not null;size:50"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (m *ContextMembership) ContextRef() ContextRef {
	return ContextRef{Type: m.ContextType, ID: m.ContextID}
}
