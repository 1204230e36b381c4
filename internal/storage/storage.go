package storage

import "mime/multipart"

// FileStorage 定义文件存储接口，本地存储和S3存储均实现该接口
type FileStorage interface {
	UploadFile(file *multipart.FileHeader, path string) (string, error)
}
