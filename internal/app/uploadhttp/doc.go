// Package uploadhttp реализует HTTP API возобновляемых загрузок поверх uploadsvc. Основные эндпоинты:
//   - POST /uploads — создаёт загрузку, возвращает upload_id и фактический размер чанка.
//   - PUT /uploads/{uploadID}/chunks/{offset} — принимает чанк; повтор уже полученного чанка безопасен.
//   - GET /uploads/{uploadID} — отдаёт полученные чанки, чтобы клиент мог продолжить.
//   - GET /uploads/{uploadID}/missing — отдаёт недостающие чанки.
//   - POST /uploads/{uploadID}/complete — завершает загрузку или возвращает 409 со списком недостающих.
//   - GET /uploads/{uploadID}/content — отдаёт файл завершённой загрузки.
//   - DELETE /uploads/{uploadID} — отменяет загрузку (всегда 204).
//   - POST /admin/gc — ручной сбор брошенных загрузок.
//   - GET /health, GET /metrics — состояние каталога данных и метрики Prometheus.
package uploadhttp
