// Package catalog собирает каталог доступных типов нод.
//
// Источники записей:
//   - встроенные описания (Builtins) — фиксированный список, их идентификаторы
//     зарезервированы;
//   - расширения — регистрируются во время работы (Register, LoadExtensions);
//   - пользовательские ноды — записи domain.CustomNode из внешнего источника,
//     получают идентификатор custom:<slug>.
//
// Каталог не участвует в выполнении нод и ничего не сохраняет: Build
// пересчитывает список при каждом вызове.
package catalog
