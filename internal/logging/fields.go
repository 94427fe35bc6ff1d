package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// DatasetFields 提供数据集名称与结果来源字段，source 为空时省略。
func DatasetFields(name, source string) logrus.Fields {
	fields := logrus.Fields{"dataset": name}
	if source != "" {
		fields["source"] = source
	}
	return fields
}

// RequestFields 提供查询服务访问日志的公共字段。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
