// Package node описывает контракт между движком и исполнителями нод.
//
// Движок передаёт исполнителю Context (конфиг, переменные, входы, учётные данные)
// и получает Result. Исполнитель никогда не возвращает ошибку наружу:
// любая неудача описывается полем Result.Error.
package node
