// Package domain содержит записи, которыми обмениваются транспортные слои
// nodeflow: пользовательские ноды для каталога и сообщения о выполнении нод.
package domain
