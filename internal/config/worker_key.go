package config

type WorkerKeyStruct struct {
	NotifyQueue string
}

var WorkerKey = &WorkerKeyStruct{
	NotifyQueue: "notify_queue",
}
