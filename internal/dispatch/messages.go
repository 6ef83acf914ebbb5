package dispatch

import (
	"fmt"
	"strings"

	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/digest"
)

const (
	msgUnknown       = "❌ Неизвестная команда. Используйте кнопки меню."
	msgAdminOnly     = "❌ Эта команда только для админа"
	msgNoUsers       = "📭 Пользователей пока нет"
	msgNoOperations  = "📭 У вас пока нет операций.\nИспользуйте кнопку «💸 Добавить траты» для начала учёта."
	msgTooFast       = "⏳ Слишком много сообщений. Подождите минуту и попробуйте снова."
	msgInternalError = "😔 Что-то пошло не так. Попробуйте еще раз."
	msgReportStarted = "🔄 Отправляю тестовый отчёт...\n(Все пользователи получат отчёт за вчера)"
	msgNoDigest      = "❌ Рассылка не настроена."
	msgNoSpendToday  = "☕ Сегодня трат пока нет, индекс кофе не посчитать."
	msgCoffeeFailed  = "❌ Не удалось создать картинку. Попробуйте позже."
)

func greeting(name string) string {
	return fmt.Sprintf("👋 Привет, %s!\n\n💰 Я помогу тебе вести учёт трат.\nВыбери действие из меню ниже:", name)
}

func helpText(hour, minute int) string {
	return fmt.Sprintf(`Помощь по боту:

📌 /start - главное меню
📌 /add - добавить трату
📌 /fix - исправить или удалить одну из последних записей
📌 /stats - статистика за сегодня
📌 /operations - последние операции
📌 /coffee - индекс кофе за сегодня
📌 /myid - показать ваш user_id
📌 /cancel - отменить текущую операцию
📌 /help - эта справка

Как пользоваться:
1. Нажмите «💸 Добавить траты» и введите сумму (например: 350)
2. Выберите категорию из списка
3. Бот сохранит запись с сегодняшней датой

Ежедневные отчеты:
📨 Каждый день в %02d:%02d бот пришлет отчет о вчерашних тратах`, hour, minute)
}

func statsText(s core.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика за сегодня (%s):\n\n", s.Day.Label())
	if !s.HasData {
		fmt.Fprintf(&b, "💰 Общие траты: %s\n\nПока нет трат. Нажмите «💸 Добавить траты».", s.Total.Display())
		return b.String()
	}
	fmt.Fprintf(&b, "💰 Общие траты: %s\n\n🏆 Топ категории:", s.Total.Display())
	for _, c := range s.Top(3) {
		fmt.Fprintf(&b, "\n• %s: %s", categoryLabel(c.Category), c.Total.Display())
	}
	return b.String()
}

func operationsText(list []core.Expense) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Последние операции (%d):\n", len(list))
	for _, e := range list {
		fmt.Fprintf(&b, "\n• %s | %s | %s", e.Date.Label(), categoryLabel(e.Category), e.Amount.Display())
	}
	return b.String()
}

// categoryLabel puts the button icon back in front of a stored category name.
func categoryLabel(name string) string {
	if icon := core.CategoryIcon(name); icon != "" {
		return icon + " " + name
	}
	return name
}

func usersText(users []core.User) string {
	var b strings.Builder
	b.WriteString("👥 Список пользователей:\n")
	for _, u := range users {
		handle := u.Username
		if handle == "" {
			handle = "нет username"
		}
		fmt.Fprintf(&b, "\n• %s (@%s) - %d", u.DisplayName(), handle, u.ID)
	}
	return b.String()
}

func reportText(r digest.Report) string {
	return fmt.Sprintf("✅ Отчёт отправлен: %d из %d (ошибок: %d).", r.Sent, r.Total, r.Failed)
}

func myIDText(id int64) string {
	return fmt.Sprintf("📋 Ваш user_id: %d", id)
}
