package access

import "fmt"

// Permission tree section keys as they appear in API payloads.
const (
	SectionDashboard      = "dashboard"
	SectionProfile        = "profile"
	SectionNotifications  = "notifications"
	SectionUserManagement = "userManagement"
	SectionLearning       = "learning"
	SectionExams          = "exams"
	SectionTasks          = "tasks"
	SectionCertification  = "certification"
	SectionSystemSettings = "systemSettings"
)

// UserManagementPerms covers the admin user directory.
type UserManagementPerms struct {
	View    bool `json:"view"`
	Create  bool `json:"create"`
	Edit    bool `json:"edit"`
	Delete  bool `json:"delete"`
	Approve bool `json:"approve"`
}

// LearningPerms covers course catalog access.
type LearningPerms struct {
	ViewCourses   bool `json:"viewCourses"`
	EnrollCourses bool `json:"enrollCourses"`
	CreateCourses bool `json:"createCourses"`
	EditCourses   bool `json:"editCourses"`
	DeleteCourses bool `json:"deleteCourses"`
}

// ExamPerms covers exam authoring, taking and grading.
type ExamPerms struct {
	View    bool `json:"view"`
	Take    bool `json:"take"`
	Create  bool `json:"create"`
	Grade   bool `json:"grade"`
	Analyze bool `json:"analyze"`
}

// TaskPerms covers the task workflow.
type TaskPerms struct {
	View     bool `json:"view"`
	Create   bool `json:"create"`
	Assign   bool `json:"assign"`
	Complete bool `json:"complete"`
	Review   bool `json:"review"`
}

// CertificationPerms covers certificate issuance and validation.
type CertificationPerms struct {
	View     bool `json:"view"`
	Issue    bool `json:"issue"`
	Validate bool `json:"validate"`
}

// SystemSettingsPerms covers platform configuration screens.
type SystemSettingsPerms struct {
	View   bool `json:"view"`
	Modify bool `json:"modify"`
}

// PermissionTree is the complete permission set of one role. Every section
// is always present; absence of access is an explicit false, never a missing
// key.
type PermissionTree struct {
	Dashboard      bool                `json:"dashboard"`
	Profile        bool                `json:"profile"`
	Notifications  bool                `json:"notifications"`
	UserManagement UserManagementPerms `json:"userManagement"`
	Learning       LearningPerms       `json:"learning"`
	Exams          ExamPerms           `json:"exams"`
	Tasks          TaskPerms           `json:"tasks"`
	Certification  CertificationPerms  `json:"certification"`
	SystemSettings SystemSettingsPerms `json:"systemSettings"`
}

// PermissionsFor returns the permission tree of a role. The switch has no
// default arm on purpose: a new Role constant without an entry here panics,
// and ValidateTable turns that into a startup failure.
func PermissionsFor(role Role) PermissionTree {
	switch role {
	case RoleAdmin:
		return PermissionTree{
			Dashboard:      true,
			Profile:        true,
			Notifications:  true,
			UserManagement: UserManagementPerms{View: true, Create: true, Edit: true, Delete: true, Approve: true},
			Learning:       LearningPerms{ViewCourses: true, EnrollCourses: true, CreateCourses: true, EditCourses: true, DeleteCourses: true},
			Exams:          ExamPerms{View: true, Take: true, Create: true, Grade: true, Analyze: true},
			Tasks:          TaskPerms{View: true, Create: true, Assign: true, Complete: true, Review: true},
			Certification:  CertificationPerms{View: true, Issue: true, Validate: true},
			SystemSettings: SystemSettingsPerms{View: true, Modify: true},
		}
	case RoleManager:
		return PermissionTree{
			Dashboard:      true,
			Profile:        true,
			Notifications:  true,
			UserManagement: UserManagementPerms{View: true, Create: true, Edit: true},
			Learning:       LearningPerms{ViewCourses: true, CreateCourses: true, EditCourses: true},
			Exams:          ExamPerms{View: true, Create: true, Grade: true, Analyze: true},
			Tasks:          TaskPerms{View: true, Create: true, Assign: true, Review: true},
			Certification:  CertificationPerms{View: true},
			SystemSettings: SystemSettingsPerms{View: true},
		}
	case RoleMentor:
		return PermissionTree{
			Dashboard:     true,
			Profile:       true,
			Notifications: true,
			Learning:      LearningPerms{ViewCourses: true},
			Exams:         ExamPerms{View: true, Grade: true},
			Tasks:         TaskPerms{View: true, Assign: true, Review: true},
			Certification: CertificationPerms{View: true},
		}
	case RoleEmployee:
		return PermissionTree{
			Dashboard:     true,
			Profile:       true,
			Notifications: true,
			Learning:      LearningPerms{ViewCourses: true, EnrollCourses: true},
			Exams:         ExamPerms{View: true, Take: true},
			Tasks:         TaskPerms{View: true, Create: true, Complete: true},
			Certification: CertificationPerms{View: true},
		}
	case RoleTrainee:
		return PermissionTree{
			Dashboard:     true,
			Profile:       true,
			Learning:      LearningPerms{ViewCourses: true, EnrollCourses: true},
			Exams:         ExamPerms{View: true, Take: true},
			Tasks:         TaskPerms{View: true, Complete: true},
			Certification: CertificationPerms{View: true},
		}
	}
	panic(fmt.Sprintf("access: no permission tree for role %q", role))
}

// ValidateTable asserts that the static table is total over the role
// enumeration. Called once from main before serving traffic.
func ValidateTable() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("access: permission table incomplete: %v", r)
		}
	}()
	for _, role := range AllRoles() {
		tree := PermissionsFor(role)
		if !tree.Dashboard || !tree.Profile {
			return fmt.Errorf("access: role %s lost baseline dashboard/profile access", role)
		}
	}
	if admin := PermissionsFor(RoleAdmin); !admin.UserManagement.Approve || !admin.SystemSettings.Modify {
		return fmt.Errorf("access: admin tree lost full grants")
	}
	return nil
}

// Allows evaluates a single permission check against the tree. Unknown
// sections and actions are denied. A boolean section ignores the action
// argument; a nested section requires one of its known actions.
func (t PermissionTree) Allows(section, action string) bool {
	switch section {
	case SectionDashboard:
		return t.Dashboard
	case SectionProfile:
		return t.Profile
	case SectionNotifications:
		return t.Notifications
	case SectionUserManagement:
		switch action {
		case "view":
			return t.UserManagement.View
		case "create":
			return t.UserManagement.Create
		case "edit":
			return t.UserManagement.Edit
		case "delete":
			return t.UserManagement.Delete
		case "approve":
			return t.UserManagement.Approve
		}
		return false
	case SectionLearning:
		switch action {
		case "viewCourses":
			return t.Learning.ViewCourses
		case "enrollCourses":
			return t.Learning.EnrollCourses
		case "createCourses":
			return t.Learning.CreateCourses
		case "editCourses":
			return t.Learning.EditCourses
		case "deleteCourses":
			return t.Learning.DeleteCourses
		}
		return false
	case SectionExams:
		switch action {
		case "view":
			return t.Exams.View
		case "take":
			return t.Exams.Take
		case "create":
			return t.Exams.Create
		case "grade":
			return t.Exams.Grade
		case "analyze":
			return t.Exams.Analyze
		}
		return false
	case SectionTasks:
		switch action {
		case "view":
			return t.Tasks.View
		case "create":
			return t.Tasks.Create
		case "assign":
			return t.Tasks.Assign
		case "complete":
			return t.Tasks.Complete
		case "review":
			return t.Tasks.Review
		}
		return false
	case SectionCertification:
		switch action {
		case "view":
			return t.Certification.View
		case "issue":
			return t.Certification.Issue
		case "validate":
			return t.Certification.Validate
		}
		return false
	case SectionSystemSettings:
		switch action {
		case "view":
			return t.SystemSettings.View
		case "modify":
			return t.SystemSettings.Modify
		}
		return false
	}
	return false
}
