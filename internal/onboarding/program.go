package onboarding

// PassThreshold is the minimum knowledge-check percentage to complete a day.
const PassThreshold = 70

// fastLearnerDays bounds the "fast learner" achievement window.
const fastLearnerDays = 7

// Program is the fixed five-day onboarding track. Content is versioned with
// the binary alongside the templates, the same closed-set reasoning applies.
var Program = []Day{
	{
		Number:      1,
		Title:       "Знакомство с компанией",
		Description: "История, ценности и структура компании",
		Tasks: []DayTask{
			{ID: "d1-office", Title: "Пройти экскурсию по офису"},
			{ID: "d1-handbook", Title: "Прочитать справочник сотрудника"},
			{ID: "d1-team", Title: "Познакомиться с командой"},
		},
		Questions: []Question{
			{ID: "d1-q1", Text: "В каком году основана компания?", Options: []string{"2010", "2015", "2018", "2020"}, Correct: 1},
			{ID: "d1-q2", Text: "Какая ценность является ключевой?", Options: []string{"Скорость", "Клиентоориентированность", "Экономия", "Секретность"}, Correct: 1},
			{ID: "d1-q3", Text: "К кому обращаться по кадровым вопросам?", Options: []string{"К директору", "К HR-отделу", "К охране", "К бухгалтерии"}, Correct: 1},
		},
		Materials: []Material{
			{Title: "Справочник сотрудника", URL: "/materials/handbook.pdf"},
			{Title: "Организационная структура", URL: "/materials/org-chart.pdf"},
		},
	},
	{
		Number:      2,
		Title:       "Рабочие инструменты",
		Description: "Настройка доступов и знакомство с внутренними системами",
		Tasks: []DayTask{
			{ID: "d2-accounts", Title: "Получить учетные записи"},
			{ID: "d2-email", Title: "Настроить корпоративную почту"},
			{ID: "d2-messenger", Title: "Подключиться к рабочему мессенджеру"},
			{ID: "d2-tracker", Title: "Освоить таск-трекер"},
		},
		Questions: []Question{
			{ID: "d2-q1", Text: "Где хранятся рабочие документы?", Options: []string{"На личном компьютере", "В корпоративном облаке", "На флешке", "В почте"}, Correct: 1},
			{ID: "d2-q2", Text: "Как часто нужно менять пароль?", Options: []string{"Никогда", "Раз в 90 дней", "Раз в год", "Каждый день"}, Correct: 1},
			{ID: "d2-q3", Text: "Куда сообщать о проблемах с техникой?", Options: []string{"В HR", "В службу поддержки", "Руководителю", "Никуда"}, Correct: 1},
		},
		Materials: []Material{
			{Title: "Инструкция по настройке почты", URL: "/materials/email-setup.pdf"},
			{Title: "Политика информационной безопасности", URL: "/materials/security-policy.pdf"},
		},
	},
	{
		Number:      3,
		Title:       "Процессы и регламенты",
		Description: "Как устроена работа: планирование, отчетность, коммуникации",
		Tasks: []DayTask{
			{ID: "d3-standup", Title: "Посетить ежедневный стендап"},
			{ID: "d3-process", Title: "Изучить регламент согласований"},
			{ID: "d3-report", Title: "Подготовить первый отчет"},
		},
		Questions: []Question{
			{ID: "d3-q1", Text: "Когда проходит ежедневный стендап?", Options: []string{"В 9:00", "В 10:00", "В 12:00", "В 18:00"}, Correct: 1},
			{ID: "d3-q2", Text: "Как оформляется отпуск?", Options: []string{"Устно", "Заявкой в системе", "По телефону", "Через коллег"}, Correct: 1},
			{ID: "d3-q3", Text: "Кто утверждает план на неделю?", Options: []string{"Сам сотрудник", "Руководитель", "HR", "Никто"}, Correct: 1},
		},
		Materials: []Material{
			{Title: "Регламент внутренних процессов", URL: "/materials/processes.pdf"},
		},
	},
	{
		Number:      4,
		Title:       "Профессиональная область",
		Description: "Погружение в предметную область и стандарты качества",
		Tasks: []DayTask{
			{ID: "d4-domain", Title: "Изучить предметную область"},
			{ID: "d4-standards", Title: "Ознакомиться со стандартами качества"},
			{ID: "d4-mentor", Title: "Провести встречу с наставником"},
		},
		Questions: []Question{
			{ID: "d4-q1", Text: "Кто отвечает за качество результата?", Options: []string{"Только контролер", "Каждый участник процесса", "Руководитель", "Заказчик"}, Correct: 1},
			{ID: "d4-q2", Text: "Что делать при обнаружении ошибки?", Options: []string{"Скрыть", "Сообщить и исправить", "Игнорировать", "Переложить на коллегу"}, Correct: 1},
			{ID: "d4-q3", Text: "Как фиксируются договоренности с наставником?", Options: []string{"Никак", "В плане развития", "В личных заметках", "Устно"}, Correct: 1},
		},
		Materials: []Material{
			{Title: "Стандарты качества", URL: "/materials/quality.pdf"},
			{Title: "План развития: шаблон", URL: "/materials/growth-plan.pdf"},
		},
	},
	{
		Number:      5,
		Title:       "Первая задача",
		Description: "Самостоятельное выполнение первой рабочей задачи",
		Tasks: []DayTask{
			{ID: "d5-task", Title: "Выполнить первую рабочую задачу"},
			{ID: "d5-review", Title: "Получить обратную связь от наставника"},
			{ID: "d5-retro", Title: "Заполнить анкету по итогам онбординга"},
		},
		Questions: []Question{
			{ID: "d5-q1", Text: "Куда передается выполненная задача?", Options: []string{"В архив", "На проверку наставнику", "Заказчику напрямую", "Никуда"}, Correct: 1},
			{ID: "d5-q2", Text: "Что происходит после завершения онбординга?", Options: []string{"Ничего", "Назначается план обучения", "Отпуск", "Повышение"}, Correct: 1},
		},
		Materials: []Material{
			{Title: "Анкета по итогам онбординга", URL: "/materials/feedback-form.pdf"},
		},
	},
}

// DayByNumber looks up a program day.
func DayByNumber(number int) (Day, bool) {
	for _, d := range Program {
		if d.Number == number {
			return d, true
		}
	}
	return Day{}, false
}
