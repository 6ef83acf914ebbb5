package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/velkoldin-dev/tratyallday/internal/chat"
	"github.com/velkoldin-dev/tratyallday/internal/core"
)

// Fix flow actions.
const (
	ActionOverwrite = "✏️ Перезаписать"
	ActionDelete    = "🗑️ Удалить"
	ActionCancel    = chat.ButtonCancel
)

const (
	msgEnterAmount    = "💰 Введите сумму траты (только число, например: 1200):"
	msgEnterNewAmount = "💰 Введите новую сумму (только число, например: 1200):"
	msgNotANumber     = "❌ Пожалуйста, введите число (например: 500 или 75.50).\nПопробуйте еще раз:"
	msgNotPositive    = "❌ Сумма должна быть положительной. Попробуйте еще раз:"
	msgUnknownCat     = "❌ Такой категории нет. Выберите категорию из списка:"
	msgSaveFailed     = "❌ Ошибка при сохранении! Попробуйте еще раз позже."
	msgNotFound       = "❌ Запись не найдена. Возможно, она уже удалена."
	msgNoRecords      = "📭 У вас пока нет записей для исправления."
	msgDeleted        = "🗑️ Запись удалена."
	msgCancelled      = "❌ Операция отменена."
	msgNothingToStop  = "Нечего отменять. Выберите действие:"
	msgChooseAction   = "❌ Выберите действие кнопками ниже:"
)

func amountAccepted(m core.Money) string {
	return fmt.Sprintf("💵 Сумма: %s\nВыберите категорию:", m.Display())
}

func expenseSaved(title string, d core.Date, m core.Money, category string) string {
	return fmt.Sprintf("%s\n\n📅 Дата: %s\n💸 Сумма: %s\n📂 Категория: %s",
		title, d.Label(), m.Display(), category)
}

func recordLine(e core.Expense) string {
	return fmt.Sprintf("%s | %s | %s", e.Date.Label(), e.Category, e.Amount.Display())
}

func candidateList(list []core.Expense) string {
	var b strings.Builder
	b.WriteString("✏️ Выберите запись для исправления:\n\n")
	for i, e := range list {
		fmt.Fprintf(&b, "%d. %s\n", i+1, recordLine(e))
	}
	return strings.TrimRight(b.String(), "\n")
}

func selectRange(n int) string {
	return fmt.Sprintf("❌ Введите номер записи от 1 до %d:", n)
}

func actionPrompt(e core.Expense) string {
	return fmt.Sprintf("Запись: %s\nЧто сделать?", recordLine(e))
}

func categoryKeyboard() [][]string {
	return chat.Column(core.Categories...)
}

func numberKeyboard(n int) [][]string {
	row := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		row = append(row, strconv.Itoa(i))
	}
	return [][]string{row, {ActionCancel}}
}

func actionKeyboard() [][]string {
	return chat.Column(ActionOverwrite, ActionDelete, ActionCancel)
}
