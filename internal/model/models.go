package model

// 所有模型的统一导入点
// 用于 AutoMigrate。Chunk 不在列表里：它的 vector 列维度来自配置，
// 由 database 包用原生 SQL 建表。
var AllModels = []interface{}{
	&CorpusMeta{},
	&UploadedFile{},
	&LearnedQA{},
	&ChatLog{},
	&User{},
}
