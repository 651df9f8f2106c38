package notifications

import "fmt"

// template binds an event to its localized title, body and styling.
type template struct {
	title string
	body  string
	typ   Type
}

// Templates are code-defined: the set of events is closed and versioned with
// the binary, so there is nothing to fetch or cache.
var templates = map[Event]template{
	EventUserRegistered:     {title: "Новая заявка", body: "Пользователь %s ожидает подтверждения", typ: TypeInfo},
	EventUserApproved:       {title: "Аккаунт подтвержден", body: "Ваша учетная запись подтверждена, роль: %s", typ: TypeSuccess},
	EventUserRejected:       {title: "Заявка отклонена", body: "Ваша заявка на регистрацию отклонена", typ: TypeError},
	EventTaskAssigned:       {title: "Новая задача", body: "Вам назначена задача: %s", typ: TypeInfo},
	EventTaskStatusChanged:  {title: "Статус задачи изменен", body: "Задача «%s» переведена в статус: %s", typ: TypeInfo},
	EventTaskOverdue:        {title: "Просроченная задача", body: "Задача «%s» просрочена", typ: TypeWarning},
	EventTaskEscalated:      {title: "Эскалация задачи", body: "Задача «%s» просрочена исполнителем", typ: TypeError},
	EventExamPassed:         {title: "Экзамен сдан", body: "Экзамен «%s» сдан с результатом %d%%", typ: TypeSuccess},
	EventExamFailed:         {title: "Экзамен не сдан", body: "Экзамен «%s» не сдан, результат %d%%", typ: TypeWarning},
	EventCertificateIssued:  {title: "Сертификат выдан", body: "Вам выдан сертификат «%s»", typ: TypeSuccess},
	EventOnboardingDayDone:  {title: "День онбординга завершен", body: "День %d программы онбординга завершен", typ: TypeSuccess},
	EventOnboardingComplete: {title: "Онбординг завершен", body: "Поздравляем, программа онбординга пройдена полностью!", typ: TypeSuccess},
}

// Render produces the localized title/message pair for an event.
func Render(event Event, args ...any) (title, message string, typ Type, err error) {
	tpl, ok := templates[event]
	if !ok {
		return "", "", TypeInfo, fmt.Errorf("notifications: no template for event %s", event)
	}
	return tpl.title, fmt.Sprintf(tpl.body, args...), tpl.typ, nil
}
