package response

// Resp 所有接口共用的外层结构；失败时 data 为空对象
type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

var empty = struct{}{}

func New(code int, msg string, data any) Resp {
	if data == nil {
		data = empty
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data any) Resp { return New(CodeOK, CodeMsgMap[CodeOK], data) }

// Error msg 为空时取 code 的默认文案，表里没有的 code 一律按 500 文案
func Error(code int, msg string) Resp {
	if msg == "" {
		var ok bool
		if msg, ok = CodeMsgMap[code]; !ok {
			msg = CodeMsgMap[CodeServerError]
		}
	}
	return New(code, msg, nil)
}
