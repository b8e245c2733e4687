// Package engine содержит примитивы, общие для всех исполнителей нод.
//
// Включает:
//   - path.go     — чтение и запись значений по пути (a.b[0].c)
//   - template.go — подстановка {{path}} в строки
//   - retry.go    — таймауты, повторы и ожидание с учётом context
//
// Пакет не знает о типах нод и не ходит в сеть.
package engine
