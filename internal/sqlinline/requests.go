package sqlinline

const QEnqueueGenerationRequest = `--sql c56bc117-ce58-406a-b117-de1419f9ac2a
insert into generation_requests (id, kind, input, lineage, status, created_at, updated_at)
values ($1::uuid, $2::text, $3::jsonb, $4::jsonb, 'queued', now(), now())
returning created_at, updated_at;
`

const QClaimGenerationRequest = `--sql af435f63-a8ae-4b17-8162-1fc0519fdf8c
update generation_requests
set status = 'running',
    attempts = attempts + 1,
    updated_at = now()
where id = (
    select id
    from generation_requests
    where status = 'queued'
    order by created_at asc
    for update skip locked
    limit 1
)
returning id::text, kind, input, lineage, status, created_at, updated_at;
`

const QCompleteGenerationRequest = `--sql 2d267138-7ffb-4a88-a916-1f7dadb9cb53
update generation_requests
set status = $2::text,
    error_kind = nullif($3::text, ''),
    error_message = nullif($4::text, ''),
    result_kind = nullif($5::text, ''),
    result_id = nullif($6::text, '')::uuid,
    provider_job_id = nullif($7::text, ''),
    updated_at = now()
where id = $1::uuid;
`

const QSelectGenerationRequest = `--sql 91b20781-6244-4de3-ae0e-0b2585fb4bb1
select id::text, kind, input, lineage, status,
       coalesce(error_kind, ''), coalesce(error_message, ''),
       coalesce(result_kind, ''), coalesce(result_id::text, ''), coalesce(provider_job_id, ''),
       created_at, updated_at
from generation_requests
where id = $1::uuid;
`
