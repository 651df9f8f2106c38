package access

import "fmt"

// Role classifies a platform user and selects their permission tree.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleMentor   Role = "MENTOR"
	RoleEmployee Role = "EMPLOYEE"
	RoleTrainee  Role = "TRAINEE"
)

// AllRoles enumerates every role known to the platform. Adding a role here
// without a matching arm in PermissionsFor fails ValidateTable at startup.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleMentor, RoleEmployee, RoleTrainee}
}

// ParseRole converts a stored role value into a Role.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin, RoleManager, RoleMentor, RoleEmployee, RoleTrainee:
		return Role(value), nil
	}
	return "", fmt.Errorf("access: unknown role %q", value)
}

// LocalizedName returns the Russian display name shown in the UI.
func (r Role) LocalizedName() string {
	switch r {
	case RoleAdmin:
		return "Администратор"
	case RoleManager:
		return "Менеджер"
	case RoleMentor:
		return "Ментор"
	case RoleEmployee:
		return "Сотрудник"
	case RoleTrainee:
		return "Стажер"
	}
	return string(r)
}

// Description returns the Russian role summary shown in the admin screens.
func (r Role) Description() string {
	switch r {
	case RoleAdmin:
		return "Полный доступ ко всем системам и настройкам"
	case RoleManager:
		return "Управление курсами, пользователями и экзаменами"
	case RoleMentor:
		return "Проверка заданий и оценивание учеников"
	case RoleEmployee:
		return "Прохождение курсов и выполнение задач"
	case RoleTrainee:
		return "Обучение и прохождение стажировки"
	}
	return ""
}

// ProfileStatus tracks the registration lifecycle of a user profile.
type ProfileStatus string

const (
	StatusPending  ProfileStatus = "pending"
	StatusApproved ProfileStatus = "approved"
	StatusRejected ProfileStatus = "rejected"
)
